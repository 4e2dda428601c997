package index_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/identity"
	"github.com/castsync/cast/pkg/index"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuild_IndexesDocumentsWithID(t *testing.T) {
	root := t.TempDir()
	id := identity.Generate()
	writeDoc(t, root, "note.md", "---\ncast-id: "+id.String()+"\ntitle: hi\n---\nbody\n")
	writeDoc(t, root, "untracked.md", "no frontmatter here\n")

	_, entries, err := index.Build(context.Background(), root, index.Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "note.md", entries[0].Path)
	assert.Equal(t, id, entries[0].ID)
}

func TestBuild_DuplicateIDIsFatal(t *testing.T) {
	root := t.TempDir()
	id := identity.Generate()
	writeDoc(t, root, "a.md", "---\ncast-id: "+id.String()+"\n---\nbody\n")
	writeDoc(t, root, "b.md", "---\ncast-id: "+id.String()+"\n---\nbody\n")

	_, _, err := index.Build(context.Background(), root, index.Options{})
	var dupErr *index.DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, id, dupErr.ID)
}

func TestBuild_AutoFixInjectsMissingID(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "note.md", "---\ncast-type: note\n---\nbody\n")

	_, entries, err := index.Build(context.Background(), root, index.Options{AutoFix: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)

	raw, err := os.ReadFile(filepath.Join(root, "note.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cast-id:")
}

func TestBuild_IncrementalReusesUnchangedEntries(t *testing.T) {
	root := t.TempDir()
	id := identity.Generate()
	writeDoc(t, root, "note.md", "---\ncast-id: "+id.String()+"\n---\nbody\n")

	idx1, entries1, err := index.Build(context.Background(), root, index.Options{})
	require.NoError(t, err)
	require.NoError(t, idx1.Save())

	_, entries2, err := index.Build(context.Background(), root, index.Options{Mode: index.Incremental})
	require.NoError(t, err)
	require.Len(t, entries2, 1)
	assert.Equal(t, entries1[0].FullDigest, entries2[0].FullDigest)
}

func TestBuild_ParsesParticipationAndTags(t *testing.T) {
	root := t.TempDir()
	id := identity.Generate()
	content := "---\ncast-id: " + id.String() + "\ncast-vaults:\n  - \"vault-a (cast)\"\ntags:\n  - work\n  - urgent\n---\nbody\n"
	writeDoc(t, root, "note.md", content)

	_, entries, err := index.Build(context.Background(), root, index.Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Participation, 1)
	assert.Equal(t, "vault-a", entries[0].Participation[0].VaultID)
	assert.ElementsMatch(t, []string{"work", "urgent"}, entries[0].Tags)
}
