package e2e_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/engine"
	"github.com/castsync/cast/pkg/identity"
	"github.com/castsync/cast/pkg/index"
	"github.com/castsync/cast/pkg/peer"
	"github.com/castsync/cast/pkg/vault"
)

func openVault(t *testing.T) (*vault.Vault, string) {
	t.Helper()
	root := t.TempDir()
	v, err := vault.Open(root, vault.WithAutoInit())
	require.NoError(t, err)
	return v, root
}

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readDoc(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(data)
}

func participation(a, b *vault.Vault) string {
	return fmt.Sprintf("cast-vaults:\n  - \"%s (sync)\"\n  - \"%s (sync)\"\n", a.Config.VaultID, b.Config.VaultID)
}

// Scenario 1: First CREATE.
func TestScenario_FirstCreate(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	result, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "CREATE", string(result.Actions[0].Type))

	content := readDoc(t, rootB, "note.md")
	assert.Contains(t, content, "cast-id: "+id.String())
	assert.Contains(t, content, "hello")
	assert.NotContains(t, content, "local", "destination-only keys must not appear after a first CREATE")

	entries, err := engine.Reindex(context.Background(), rootB)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)

	j, err := peer.Open(filepath.Join(rootB, ".cast", "peers"), a.Config.VaultID)
	require.NoError(t, err)
	fs, ok := j.Get(id)
	require.True(t, ok)
	assert.Equal(t, peer.ResultCreate, fs.LastResult)
	assert.NotEmpty(t, fs.BaseObjectDigest)
}

// Scenario 2: header-only change on the destination is SKIP, and the
// destination's local key survives the sync untouched.
func TestScenario_HeaderOnlyChangeIsSkip(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	_, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)

	// B adds a local-only key after the first sync.
	bContent := readDoc(t, rootB, "note.md")
	writeDoc(t, rootB, "note.md", bContent[:len(bContent)-len("---\nhello\n")]+"tags:\n  - x\n---\nhello\n")

	result, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "SKIP", string(result.Actions[0].Type))

	content := readDoc(t, rootB, "note.md")
	assert.Contains(t, content, "tags:")
	assert.Contains(t, content, "- x")
}

// Scenario 3: a one-sided body change is an UPDATE; destination-local
// keys survive, and the recorded baseline advances.
func TestScenario_OneSidedBodyChangeIsUpdate(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	_, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)

	bBefore := readDoc(t, rootB, "note.md")
	writeDoc(t, rootB, "note.md", bBefore[:len(bBefore)-len("---\nhello\n")]+"tags:\n  - x\n---\nhello\n")

	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello world\n")

	result, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "UPDATE", string(result.Actions[0].Type))

	content := readDoc(t, rootB, "note.md")
	assert.Contains(t, content, "hello world")
	assert.Contains(t, content, "tags:")
}

// Scenario 4: changes to the same heading block on both sides, with
// differing content, produce a conflict file and leave the
// destination's existing content untouched.
func TestScenario_BothSidedChangeConflicts(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	_, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)

	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n\n# Section\naaa\n")
	writeDoc(t, rootB, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n\n# Section\nbbb\n")
	destBefore := readDoc(t, rootB, "note.md")

	result, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Contains(t, []string{"MERGE", "CONFLICT"}, string(result.Actions[0].Type))
	require.NotNil(t, result.Report)

	conflicted := result.Report.Conflicted()
	require.Len(t, conflicted, 1)
	assert.FileExists(t, filepath.Join(rootB, conflicted[0].ConflictPath))

	destAfter := readDoc(t, rootB, "note.md")
	assert.Equal(t, destBefore, destAfter, "a materialized conflict must never touch the destination's existing content")

	j, err := peer.Open(filepath.Join(rootB, ".cast", "peers"), a.Config.VaultID)
	require.NoError(t, err)
	fs, ok := j.Get(id)
	require.True(t, ok)
	assert.Equal(t, peer.ResultConflict, fs.LastResult)
}

// Scenario 5: an append on only one side is an UPDATE (no merge
// needed); an append on both sides where one is a prefix of the other
// resolves via the planner's prefix-containment heuristic, with no
// hunks recorded.
func TestScenario_AppendHeuristic(t *testing.T) {
	t.Run("only one side appends", func(t *testing.T) {
		a, rootA := openVault(t)
		b, rootB := openVault(t)

		id := identity.Generate()
		writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

		_, err := engine.Sync(context.Background(), rootA, rootB)
		require.NoError(t, err)

		writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\nworld\n")

		result, err := engine.Sync(context.Background(), rootA, rootB)
		require.NoError(t, err)
		require.Len(t, result.Actions, 1)
		assert.Equal(t, "UPDATE", string(result.Actions[0].Type))
	})

	t.Run("both sides already carry the document and one's body is a prefix of the other", func(t *testing.T) {
		// No prior sync here: both vaults independently already have the
		// document (no recorded baseline), one's body a strict prefix of
		// the other's. The planner's no-baseline prefix heuristic lets the
		// longer side win rather than conflicting; here the destination
		// already holds the longer body, so the action is a SKIP.
		a, rootA := openVault(t)
		b, rootB := openVault(t)

		id := identity.Generate()
		writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")
		writeDoc(t, rootB, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\nworld\n")

		result, err := engine.Sync(context.Background(), rootA, rootB)
		require.NoError(t, err)
		require.Len(t, result.Actions, 1)
		assert.Equal(t, "SKIP", string(result.Actions[0].Type), "source's content is already a prefix of dest's, so dest's longer content wins without being overwritten")

		content := readDoc(t, rootB, "note.md")
		assert.Contains(t, content, "hello\nworld")
	})
}

// Scenario 6: duplicate identifiers abort the index build entirely.
func TestScenario_DuplicateIdentifierAbortsBuild(t *testing.T) {
	_, root := openVault(t)
	id := identity.Generate()
	writeDoc(t, root, "one.md", "---\ncast-id: "+id.String()+"\n---\nfirst\n")
	writeDoc(t, root, "two.md", "---\ncast-id: "+id.String()+"\n---\nsecond\n")

	_, _, err := index.Build(context.Background(), root, index.Options{})
	require.Error(t, err)

	var dup *identity.DuplicateIDError
	require.ErrorAs(t, err, &dup)
	paths := []string{dup.Paths[0], dup.Paths[1]}
	assert.ElementsMatch(t, []string{"one.md", "two.md"}, paths)
}

// Sync convergence: applying A->B, then B->A, then A->B again is a
// no-op provided no external edits occurred in between.
func TestInvariant_SyncConvergence(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	_, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)

	_, err = engine.Sync(context.Background(), rootB, rootA)
	require.NoError(t, err)

	result, err := engine.Sync(context.Background(), rootA, rootB)
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "SKIP", string(result.Actions[0].Type))
}

// Planner purity: repeated invocations over the same unchanged inputs
// yield identical action lists.
func TestInvariant_PlannerPurity(t *testing.T) {
	a, rootA := openVault(t)
	b, rootB := openVault(t)

	id := identity.Generate()
	writeDoc(t, rootA, "note.md", "---\ncast-id: "+id.String()+"\n"+participation(a, b)+"---\nhello\n")

	first, err := engine.Sync(context.Background(), rootA, rootB, engine.WithDryRun())
	require.NoError(t, err)
	second, err := engine.Sync(context.Background(), rootA, rootB, engine.WithDryRun())
	require.NoError(t, err)

	require.Len(t, first.Actions, 1)
	require.Len(t, second.Actions, 1)
	assert.Equal(t, first.Actions[0].Type, second.Actions[0].Type)
	assert.Equal(t, first.Actions[0].DestPath, second.Actions[0].DestPath)
}
