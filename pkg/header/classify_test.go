package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castsync/cast/pkg/header"
)

func TestClassify(t *testing.T) {
	ephemeral := map[string]struct{}{"updated": {}}

	assert.Equal(t, header.BucketEphemeral, header.Classify("updated", ephemeral))
	assert.Equal(t, header.BucketReserved, header.Classify("cast-id", ephemeral))
	assert.Equal(t, header.BucketReserved, header.Classify("cast-vaults", ephemeral))
	assert.Equal(t, header.BucketReserved, header.Classify("cast-future-field", ephemeral))
	assert.Equal(t, header.BucketLocal, header.Classify("title", ephemeral))
}

func TestIsReservedKey(t *testing.T) {
	assert.True(t, header.IsReservedKey("cast-id"))
	assert.True(t, header.IsReservedKey("cast-anything"))
	assert.False(t, header.IsReservedKey("title"))
}
