package apply_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/apply"
	"github.com/castsync/cast/pkg/normalize"
	"github.com/castsync/cast/pkg/objects"
	"github.com/castsync/cast/pkg/peer"
	"github.com/castsync/cast/pkg/plan"
)

func newRequest(t *testing.T, actions []plan.Action) (apply.Request, func(rel string) string) {
	t.Helper()
	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	store, err := objects.Open(filepath.Join(destRoot, ".cast", "objects"))
	require.NoError(t, err)
	srcJournal, err := peer.Open(t.TempDir(), "dest")
	require.NoError(t, err)
	dstJournal, err := peer.Open(t.TempDir(), "source")
	require.NoError(t, err)

	req := apply.Request{
		SourceRoot: srcRoot, DestRoot: destRoot,
		SourceVaultID: "source", DestVaultID: "dest",
		Actions:       actions,
		DestObjects:   store,
		SourceJournal: srcJournal,
		DestJournal:   dstJournal,
		Now:           func() time.Time { return time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC) },
	}
	return req, func(rel string) string { return filepath.Join(destRoot, rel) }
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestApply_CreateWritesDestination(t *testing.T) {
	id := uuid.New()
	action := plan.Action{ID: id, Type: plan.Create, SourcePath: "note.md", DestPath: "note.md"}
	req, destPath := newRequest(t, []plan.Action{action})
	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\n---\nhello\n")

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Empty(t, report.Failed())

	data, err := os.ReadFile(destPath("note.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestApply_CreateCollisionSuffixesPath(t *testing.T) {
	id := uuid.New()
	action := plan.Action{ID: id, Type: plan.Create, SourcePath: "note.md", DestPath: "note.md"}
	req, destPath := newRequest(t, []plan.Action{action})
	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\n---\nhello\n")
	require.NoError(t, os.WriteFile(destPath("note.md"), []byte("existing"), 0o644))

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Len(t, report.Collisions, 1)
	assert.Equal(t, "note.md", report.Collisions[0].OriginalPath)
	assert.NotEqual(t, "note.md", report.Collisions[0].WrittenPath)

	// Original destination file must remain untouched.
	data, err := os.ReadFile(destPath("note.md"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestApply_UpdateMergesHeaderKeepingLocalKeys(t *testing.T) {
	id := uuid.New()
	action := plan.Action{ID: id, Type: plan.Update, SourcePath: "note.md", DestPath: "note.md"}
	req, destPath := newRequest(t, []plan.Action{action})
	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\ncast-type: note\n---\nnew body\n")
	require.NoError(t, os.MkdirAll(filepath.Dir(destPath("note.md")), 0o755))
	require.NoError(t, os.WriteFile(destPath("note.md"), []byte("---\ncast-id: "+id.String()+"\ncategory: work\n---\nold body\n"), 0o644))

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Empty(t, report.Failed())

	data, err := os.ReadFile(destPath("note.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "new body")
	assert.Contains(t, string(data), "category: work")
}

func TestApply_SkipRecordsBaselineWithoutWriting(t *testing.T) {
	id := uuid.New()
	digest := string(normalize.Digest("sha256:same"))
	action := plan.Action{ID: id, Type: plan.Skip, SourcePath: "note.md", DestPath: "note.md", SourceDigest: digest, DestDigest: digest}
	req, destPath := newRequest(t, []plan.Action{action})

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Empty(t, report.Failed())

	_, err = os.Stat(destPath("note.md"))
	assert.True(t, os.IsNotExist(err))

	fs, ok := req.SourceJournal.Get(id)
	require.True(t, ok)
	assert.Equal(t, peer.ResultSkip, fs.LastResult)
}

func TestApply_MergeWithoutHunksWritesMergedBody(t *testing.T) {
	id := uuid.New()
	req, destPath := newRequest(t, nil)

	baseBody := "# Title\nbase\n"
	baseline, err := req.DestObjects.Put([]byte(baseBody))
	require.NoError(t, err)

	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\n---\n# Title\nsource edit\n")
	require.NoError(t, os.WriteFile(destPath("note.md"), []byte("---\ncast-id: "+id.String()+"\n---\n# Title\nbase\n"), 0o644))

	action := plan.Action{ID: id, Type: plan.Merge, SourcePath: "note.md", DestPath: "note.md", BaselineDigest: string(baseline)}
	req.Actions = []plan.Action{action}

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	assert.Empty(t, report.Conflicted())

	data, err := os.ReadFile(destPath("note.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "source edit")
}

func TestApply_MergeWithUnresolvedHunksMaterializesConflictFile(t *testing.T) {
	id := uuid.New()
	req, destPath := newRequest(t, nil)

	baseBody := "# Title\nbase\n"
	baseline, err := req.DestObjects.Put([]byte(baseBody))
	require.NoError(t, err)

	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\n---\n# Title\nsource edit\n")
	require.NoError(t, os.WriteFile(destPath("note.md"), []byte("---\ncast-id: "+id.String()+"\n---\n# Title\ndest edit\n"), 0o644))

	action := plan.Action{ID: id, Type: plan.Merge, SourcePath: "note.md", DestPath: "note.md", BaselineDigest: string(baseline)}
	req.Actions = []plan.Action{action}

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	require.Len(t, report.Conflicted(), 1)

	conflictPath := report.Conflicted()[0].ConflictPath
	assert.Contains(t, conflictPath, ".conflicted-")

	data, err := os.ReadFile(destPath(conflictPath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "source edit")
	assert.Contains(t, string(data), "dest edit")

	// Destination's original content is untouched.
	orig, err := os.ReadFile(destPath("note.md"))
	require.NoError(t, err)
	assert.Contains(t, string(orig), "dest edit")
	assert.NotContains(t, string(orig), "source edit")
}

func TestApply_ConflictInterleavesWholeBodies(t *testing.T) {
	id := uuid.New()
	req, destPath := newRequest(t, nil)

	writeSource(t, req.SourceRoot, "note.md", "---\ncast-id: "+id.String()+"\n---\nsource body\n")
	require.NoError(t, os.WriteFile(destPath("note.md"), []byte("---\ncast-id: "+id.String()+"\n---\ndest body\n"), 0o644))

	action := plan.Action{ID: id, Type: plan.Conflict, SourcePath: "note.md", DestPath: "note.md"}
	req.Actions = []plan.Action{action}

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Len(t, report.Conflicted(), 1)

	data, err := os.ReadFile(destPath(report.Conflicted()[0].ConflictPath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "source body")
	assert.Contains(t, string(data), "dest body")
}

func TestApply_UnsupportedActionTypeRecordsError(t *testing.T) {
	id := uuid.New()
	action := plan.Action{ID: id, Type: plan.DeleteTombstone, SourcePath: "note.md", DestPath: "note.md"}
	req, _ := newRequest(t, []plan.Action{action})

	report, err := apply.Apply(req)
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
}
