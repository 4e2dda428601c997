package cast_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/castsync/cast/pkg/cast"
)

func TestMalformedHeaderError_UnwrapsUnderlyingError(t *testing.T) {
	inner := fmt.Errorf("unexpected token")
	err := &cast.MalformedHeaderError{Path: "note.md", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "note.md")
}

func TestEncodingError_UnwrapsUnderlyingError(t *testing.T) {
	inner := fmt.Errorf("invalid utf-8")
	err := &cast.EncodingError{Path: "note.md", Err: inner}
	assert.True(t, errors.Is(err, inner))
}

func TestPathCollisionError_MentionsBothPaths(t *testing.T) {
	err := &cast.PathCollisionError{OriginalPath: "note.md", WrittenPath: "note.abcd1234.md"}
	assert.Contains(t, err.Error(), "note.md")
	assert.Contains(t, err.Error(), "note.abcd1234.md")
}

func TestIneligiblePairError_MentionsID(t *testing.T) {
	err := &cast.IneligiblePairError{ID: "doc-1"}
	assert.Contains(t, err.Error(), "doc-1")
}
