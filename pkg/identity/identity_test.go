package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/header"
	"github.com/castsync/cast/pkg/identity"
)

func TestGenerateAndParse(t *testing.T) {
	id := identity.Generate()
	parsed, err := identity.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParse_RejectsNonV4(t *testing.T) {
	_, err := identity.Parse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Error(t, err)
}

func TestInject_RequiresTriggerKey(t *testing.T) {
	b := header.NewBlock()
	b.Set("title", header.NewScalar("hello"))

	_, injected := identity.Inject(b)
	assert.False(t, injected)
	_, ok := b.Get(header.KeyID)
	assert.False(t, ok)
}

func TestInject_InsertsIDFirst(t *testing.T) {
	b := header.NewBlock()
	b.Set("cast-type", header.NewScalar("note"))
	b.Set("title", header.NewScalar("hello"))

	id, injected := identity.Inject(b)
	require.True(t, injected)
	assert.Equal(t, []string{header.KeyID, "cast-type", "title"}, b.Keys())

	got, ok, err := identity.Get(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestInject_NoOpWhenIDAlreadyPresent(t *testing.T) {
	b := header.NewBlock()
	b.Set("cast-type", header.NewScalar("note"))
	b.Set(header.KeyID, header.NewScalar(identity.Generate().String()))

	_, injected := identity.Inject(b)
	assert.False(t, injected)
	assert.Equal(t, header.KeyID, b.Keys()[0])
}

func TestFindDuplicates(t *testing.T) {
	shared := identity.Generate()
	idsByPath := map[string]identity.ID{
		"a.md": shared,
		"b.md": shared,
		"c.md": identity.Generate(),
	}

	dupes := identity.FindDuplicates(idsByPath)
	require.Len(t, dupes, 1)
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, dupes[shared])
}
