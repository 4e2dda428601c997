// Package index maintains the per-vault mapping from document identifier
// to its indexed metadata, rebuilding incrementally from (path, size,
// mtime) as a cache-hit key.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/castsync/cast/pkg/atomicfile"
	"github.com/castsync/cast/pkg/header"
	"github.com/castsync/cast/pkg/identity"
	"github.com/castsync/cast/pkg/normalize"
	"github.com/castsync/cast/pkg/selector"
)

// Entry is one tracked file's indexed metadata.
type Entry struct {
	ID            uuid.UUID                `json:"id"`
	Path          string                   `json:"path"`
	Size          int64                    `json:"size"`
	ModTime       time.Time                `json:"mtime"`
	FullDigest    normalize.Digest         `json:"full_digest"`
	BodyDigest    normalize.Digest         `json:"body_digest"`
	Participation header.ParticipationList `json:"participation,omitempty"`
	DocType       string                   `json:"doc_type,omitempty"`
	Category      string                   `json:"category,omitempty"`
	Tags          []string                 `json:"tags,omitempty"`
}

// Mode selects whether Build reuses cached entries.
type Mode int

const (
	// Incremental reuses entries whose (path, size, mtime) are unchanged.
	Incremental Mode = iota
	// Rebuild discards the prior snapshot and re-normalizes everything.
	Rebuild
)

// DuplicateIDError reports that build() found the same identifier on
// more than one path; it is fatal for the vault.
type DuplicateIDError = identity.DuplicateIDError

// EncodingError wraps a normalization failure (invalid UTF-8 or a header
// block that could not be split) surfaced for a specific path during a
// build.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

// Options configures a Build call.
type Options struct {
	Include     []string
	Exclude     []string
	Ephemeral   map[string]struct{}
	AutoFix     bool
	Mode        Mode
	Parallel    int   // 0 selects a sane default based on GOMAXPROCS
	MaxFileSize int64 // 0 disables the limit
}

// Index is a vault's persisted identifier → entry mapping.
type Index struct {
	path    string
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	byPath  map[string]uuid.UUID
}

// Open loads the index stored at path, or returns an empty Index if it
// does not yet exist.
func Open(path string) (*Index, error) {
	idx := &Index{
		path:    path,
		entries: make(map[uuid.UUID]*Entry),
		byPath:  make(map[string]uuid.UUID),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) load() error {
	data, err := os.ReadFile(idx.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index %s: %w", idx.path, err)
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("corrupt index %s: %w", idx.path, err)
	}
	for _, e := range entries {
		idx.entries[e.ID] = e
		idx.byPath[e.Path] = e.ID
	}
	return nil
}

// Save persists the index atomically as a single JSON document.
func (idx *Index) Save() error {
	idx.mu.RLock()
	entries := idx.snapshotLocked()
	idx.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(idx.path, data, 0o644)
}

func (idx *Index) snapshotLocked() []*Entry {
	out := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Snapshot returns a stable-ordered copy of all entries.
func (idx *Index) Snapshot() []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.snapshotLocked()
}

// LookupByID returns the entry for id, if tracked.
func (idx *Index) LookupByID(id uuid.UUID) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	return e, ok
}

// LookupByPath returns the entry tracked at a relative path, if any.
func (idx *Index) LookupByPath(relPath string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.byPath[relPath]
	if !ok {
		return nil, false
	}
	return idx.entries[id], true
}

// digestJob is the per-path unit of work for the bounded-parallel pool.
type digestJob struct {
	relPath string
	absPath string
}

type digestResult struct {
	relPath string
	entry   *Entry
	skipped bool
	encErr  error
}

// Build walks root per opts, reuses cached digests for unchanged files,
// and recomputes the rest over a bounded-parallel worker pool — a fixed
// worker set draining a work queue, not cooperative scheduling, per the
// engine's coroutine-free design. It fails the whole build on the first
// duplicate identifier it finds.
func Build(ctx context.Context, root string, opts Options) (*Index, []*Entry, error) {
	idx, err := Open(filepath.Join(root, ".cast", "index.json"))
	if err != nil {
		return nil, nil, err
	}

	paths, err := selector.Select(root, opts.Include, opts.Exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select files: %w", err)
	}

	selected := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		selected[p] = struct{}{}
	}

	jobs := make([]digestJob, 0, len(paths))
	reused := make(map[string]*Entry)

	idx.mu.RLock()
	prior := idx.byPath
	priorEntries := idx.entries
	idx.mu.RUnlock()

	for _, rel := range paths {
		abs := filepath.Join(root, rel)
		info, statErr := os.Stat(abs)
		if statErr != nil {
			continue
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			continue
		}

		if opts.Mode == Incremental {
			if id, ok := prior[rel]; ok {
				if e := priorEntries[id]; e != nil && e.Size == info.Size() && e.ModTime.Equal(info.ModTime()) {
					reused[rel] = e
					continue
				}
			}
		}

		jobs = append(jobs, digestJob{relPath: rel, absPath: abs})
	}

	results, err := digestAll(ctx, root, jobs, opts)
	if err != nil {
		return nil, nil, err
	}

	newEntries := make(map[uuid.UUID]*Entry)
	newByPath := make(map[string]uuid.UUID)
	var encodingErrs []error

	addEntry := func(rel string, e *Entry) {
		newEntries[e.ID] = e
		newByPath[rel] = e.ID
	}

	for rel, e := range reused {
		addEntry(rel, e)
	}
	for _, r := range results {
		if r.skipped {
			continue
		}
		if r.encErr != nil {
			encodingErrs = append(encodingErrs, &EncodingError{Path: r.relPath, Err: r.encErr})
			continue
		}
		addEntry(r.relPath, r.entry)
	}

	idsByPath := make(map[string]uuid.UUID, len(newByPath))
	for path, id := range newByPath {
		idsByPath[path] = id
	}
	if dupes := identity.FindDuplicates(idsByPath); len(dupes) > 0 {
		for id, dupPaths := range dupes {
			return nil, nil, &identity.DuplicateIDError{ID: id, Paths: dupPaths}
		}
	}

	idx.mu.Lock()
	idx.entries = newEntries
	idx.byPath = newByPath
	idx.mu.Unlock()

	if len(encodingErrs) > 0 {
		return idx, idx.Snapshot(), encodingErrs[0]
	}
	return idx, idx.Snapshot(), nil
}

// digestAll computes digests for jobs over a bounded-parallel pool sized
// by opts.Parallel (default: GOMAXPROCS), draining a fixed work queue.
func digestAll(ctx context.Context, root string, jobs []digestJob, opts Options) ([]digestResult, error) {
	results := make([]digestResult, len(jobs))

	limit := opts.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = digestOne(root, job, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func digestOne(root string, job digestJob, opts Options) digestResult {
	content, err := os.ReadFile(job.absPath)
	if err != nil {
		return digestResult{relPath: job.relPath, skipped: true}
	}

	block, body, splitErr := header.Split(content)
	if splitErr == nil && opts.AutoFix && block != nil {
		if _, injected := identity.Inject(block); injected {
			if newContent, renderErr := header.Render(block, body); renderErr == nil {
				if writeErr := atomicfile.Write(job.absPath, newContent, 0o644); writeErr == nil {
					content = newContent
				}
			}
		}
	}

	result, err := normalize.Normalize(content, opts.Ephemeral)
	if err != nil {
		return digestResult{relPath: job.relPath, encErr: err}
	}

	info, err := os.Stat(job.absPath)
	if err != nil {
		return digestResult{relPath: job.relPath, skipped: true}
	}

	entry := &Entry{
		Path:       job.relPath,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		FullDigest: result.Full,
		BodyDigest: result.BodyOnly,
	}

	if result.Header != nil {
		// A materialized conflict file carries its document's cast-id; it
		// is left out of the index so that the identifier stays unique.
		if _, isConflict := result.Header.Get("cast-conflict"); isConflict {
			return digestResult{relPath: job.relPath, skipped: true}
		}
		if id, ok, idErr := identity.Get(result.Header); idErr == nil && ok {
			entry.ID = id
		} else {
			return digestResult{relPath: job.relPath, skipped: true}
		}
		if v, ok := result.Header.Get("cast-vaults"); ok {
			if pl, plErr := header.ParseParticipationList(v); plErr == nil {
				entry.Participation = pl
			}
		}
		if v, ok := result.Header.Get("cast-type"); ok && v.Kind == header.KindScalar {
			entry.DocType = v.Scalar
		}
		if v, ok := result.Header.Get("category"); ok && v.Kind == header.KindScalar {
			entry.Category = v.Scalar
		}
		if v, ok := result.Header.Get("tags"); ok && v.Kind == header.KindSequence {
			for _, t := range v.Sequence {
				if t.Kind == header.KindScalar {
					entry.Tags = append(entry.Tags, t.Scalar)
				}
			}
		}
	} else {
		return digestResult{relPath: job.relPath, skipped: true}
	}

	return digestResult{relPath: job.relPath, entry: entry}
}
