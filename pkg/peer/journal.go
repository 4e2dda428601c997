// Package peer persists the per-ordered-pair sync journal: for each
// document identifier, the last digests agreed between two vaults and
// the outcome of the last sync action.
package peer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castsync/cast/pkg/atomicfile"
	"github.com/castsync/cast/pkg/normalize"
)

// Result mirrors the planner's action outcomes that peer state records.
type Result string

const (
	ResultCreate   Result = "CREATE"
	ResultUpdate   Result = "UPDATE"
	ResultMerge    Result = "MERGE"
	ResultConflict Result = "CONFLICT"
	ResultSkip     Result = "SKIP"
)

// FileState is one identifier's entry within a peer journal.
type FileState struct {
	SourceDigest     normalize.Digest `json:"source_digest,omitempty"`
	DestDigest       normalize.Digest `json:"dest_digest,omitempty"`
	BaseObjectDigest normalize.Digest `json:"base_object_digest,omitempty"`
	LastResult       Result           `json:"last_result,omitempty"`
	LastTimestamp    time.Time        `json:"last_timestamp,omitempty"`
}

// document is the on-disk shape of a peer journal file.
type document struct {
	PeerID   string                   `json:"peer_id"`
	LastSync *time.Time               `json:"last_sync,omitempty"`
	Files    map[uuid.UUID]*FileState `json:"files"`
}

// Journal is the persistent mapping for one ordered (local, remote)
// vault pair, stored at .cast/peers/<remote-vault-id>.json.
type Journal struct {
	path string
	mu   sync.RWMutex
	doc  document
}

// Open loads (or lazily initializes) the journal for peerID under dir
// (a vault's .cast/peers directory).
func Open(dir, peerID string) (*Journal, error) {
	j := &Journal{
		path: filepath.Join(dir, peerID+".json"),
		doc: document{
			PeerID: peerID,
			Files:  make(map[uuid.UUID]*FileState),
		},
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read peer journal %s: %w", j.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("corrupt peer journal %s: %w", j.path, err)
	}
	if doc.Files == nil {
		doc.Files = make(map[uuid.UUID]*FileState)
	}
	j.doc = doc
	return nil
}

// Save persists the journal atomically.
func (j *Journal) Save() error {
	j.mu.RLock()
	data, err := json.MarshalIndent(j.doc, "", "  ")
	j.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("failed to create peer journal directory: %w", err)
	}
	return atomicfile.Write(j.path, data, 0o644)
}

// Get returns the recorded state for id, if any.
func (j *Journal) Get(id uuid.UUID) (FileState, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	fs, ok := j.doc.Files[id]
	if !ok {
		return FileState{}, false
	}
	return *fs, true
}

// Update mutates (or creates) the entry for id via fn, stamping
// LastTimestamp when fn changes LastResult.
func (j *Journal) Update(id uuid.UUID, fn func(*FileState)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fs, ok := j.doc.Files[id]
	if !ok {
		fs = &FileState{}
		j.doc.Files[id] = fs
	}
	before := fs.LastResult
	fn(fs)
	if fs.LastResult != before {
		fs.LastTimestamp = now()
	}
}

// Remove deletes the entry for id, if present.
func (j *Journal) Remove(id uuid.UUID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.doc.Files, id)
}

// BaseDigest returns the recorded baseline digest for id, if any.
func (j *Journal) BaseDigest(id uuid.UUID) (normalize.Digest, bool) {
	fs, ok := j.Get(id)
	if !ok || fs.BaseObjectDigest == "" {
		return "", false
	}
	return fs.BaseObjectDigest, true
}

// AllBaseDigests returns every recorded baseline digest, for GC and
// orphan-reference computation.
func (j *Journal) AllBaseDigests() map[normalize.Digest]struct{} {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[normalize.Digest]struct{})
	for _, fs := range j.doc.Files {
		if fs.BaseObjectDigest != "" {
			out[fs.BaseObjectDigest] = struct{}{}
		}
	}
	return out
}

// MarkSynced stamps the journal's last-sync time to now.
func (j *Journal) MarkSynced() {
	j.mu.Lock()
	defer j.mu.Unlock()
	t := now()
	j.doc.LastSync = &t
}

// CleanupOrphans removes entries for identifiers not present in active,
// mirroring the original implementation's per-vault peer-state GC.
func (j *Journal) CleanupOrphans(active map[uuid.UUID]struct{}) (removed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for id := range j.doc.Files {
		if _, ok := active[id]; !ok {
			delete(j.doc.Files, id)
			removed++
		}
	}
	return removed
}

// CommonBaseline returns the base object digest both peer journals agree
// on for id, or ok=false if either side lacks a recorded baseline or the
// two disagree. Planning never trusts a baseline that only one side
// remembers.
func CommonBaseline(src, dst *Journal, id uuid.UUID) (normalize.Digest, bool) {
	if src == nil || dst == nil {
		return "", false
	}
	srcBase, ok := src.BaseDigest(id)
	if !ok {
		return "", false
	}
	dstBase, ok := dst.BaseDigest(id)
	if !ok {
		return "", false
	}
	if srcBase != dstBase {
		return "", false
	}
	return srcBase, true
}

var nowFunc = time.Now

func now() time.Time { return nowFunc() }
