package selector_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/selector"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
}

func TestSelect_DefaultExcludesSystemDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes/a.md")
	writeFile(t, root, ".cast/index.json")
	writeFile(t, root, ".git/HEAD")

	paths, err := selector.Select(root, nil, selector.DefaultExclude)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/a.md"}, paths)
}

func TestSelect_ExcludeOverridesInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md")
	writeFile(t, root, "drop.md")

	paths, err := selector.Select(root, []string{"*.md"}, []string{"drop.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.md"}, paths)
}

func TestSelect_HiddenSegmentsExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "visible.md")
	writeFile(t, root, ".obsidian/workspace.json")

	paths, err := selector.Select(root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.md"}, paths)
}

func TestSelect_StableSortedOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.md")
	writeFile(t, root, "a.md")
	writeFile(t, root, "c.md")

	paths, err := selector.Select(root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, paths)
}

func TestSelect_DoubleStarMatchesNestedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "deep/nested/path/note.md")

	paths, err := selector.Select(root, []string{"**/*.md"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"deep/nested/path/note.md"}, paths)
}
