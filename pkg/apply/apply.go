// Package apply executes a planned action list against a destination
// vault atomically, under the vault's exclusive lock, and materializes
// unresolved merges as sibling conflict files.
package apply

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/castsync/cast/pkg/atomicfile"
	"github.com/castsync/cast/pkg/header"
	"github.com/castsync/cast/pkg/identity"
	"github.com/castsync/cast/pkg/index"
	"github.com/castsync/cast/pkg/merge"
	"github.com/castsync/cast/pkg/normalize"
	"github.com/castsync/cast/pkg/objects"
	"github.com/castsync/cast/pkg/peer"
	"github.com/castsync/cast/pkg/plan"
)

// PathCollisionEvent records a CREATE that landed on an already-occupied
// destination path and was rewritten with a collision suffix.
type PathCollisionEvent struct {
	OriginalPath string
	WrittenPath  string
	ID           uuid.UUID
}

// ActionOutcome is the per-action result of Apply, for the run report.
type ActionOutcome struct {
	Action plan.Action
	Err    error
	// ConflictPath is set when the action materialized a conflict file.
	ConflictPath string
}

// Report summarizes one Apply run.
type Report struct {
	Outcomes   []ActionOutcome
	Collisions []PathCollisionEvent
}

// Failed returns the outcomes that errored.
func (r *Report) Failed() []ActionOutcome {
	var out []ActionOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Conflicted returns the outcomes that materialized a conflict file.
func (r *Report) Conflicted() []ActionOutcome {
	var out []ActionOutcome
	for _, o := range r.Outcomes {
		if o.ConflictPath != "" {
			out = append(out, o)
		}
	}
	return out
}

// Request bundles everything Apply needs for one destination vault.
type Request struct {
	SourceRoot    string
	DestRoot      string
	SourceVaultID string
	DestVaultID   string

	Actions []plan.Action

	DestIndex     *index.Index
	DestObjects   *objects.Store
	SourceJournal *peer.Journal // source vault's journal for (source, dest)
	DestJournal   *peer.Journal // dest vault's journal for (dest, source)

	Ephemeral map[string]struct{}
	Logger    *slog.Logger

	Now func() time.Time // overridable for tests; defaults to time.Now
}

// Apply executes req.Actions in their given (planner-stable) order. It
// never aborts on a single action's failure: each action's outcome is
// recorded independently so a broken file cannot block the rest of a
// large sync. Callers are responsible for holding the destination
// vault's lock for the duration of the call.
func Apply(req Request) (*Report, error) {
	nowFn := req.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	log := req.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	report := &Report{}

	for _, action := range req.Actions {
		outcome := ActionOutcome{Action: action}

		switch action.Type {
		case plan.Create:
			collision, err := applyCreate(req, action, nowFn)
			outcome.Err = err
			if collision != nil {
				report.Collisions = append(report.Collisions, *collision)
			}
		case plan.Update:
			outcome.Err = applyUpdate(req, action)
		case plan.Skip:
			outcome.Err = applySkip(req, action)
		case plan.Merge:
			conflictPath, err := applyMerge(req, action, nowFn)
			outcome.Err = err
			outcome.ConflictPath = conflictPath
		case plan.Conflict:
			conflictPath, err := applyConflict(req, action, nowFn)
			outcome.Err = err
			outcome.ConflictPath = conflictPath
		default:
			outcome.Err = fmt.Errorf("unsupported action type %q", action.Type)
		}

		if outcome.Err != nil {
			log.Error("action failed", "id", action.ID, "type", action.Type, "err", outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

func applyCreate(req Request, action plan.Action, nowFn func() time.Time) (*PathCollisionEvent, error) {
	srcAbs := filepath.Join(req.SourceRoot, action.SourcePath)
	raw, err := os.ReadFile(srcAbs)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", action.SourcePath, err)
	}

	destRel := action.DestPath
	destAbs := filepath.Join(req.DestRoot, destRel)

	var collision *PathCollisionEvent
	if _, err := os.Stat(destAbs); err == nil {
		suffix := action.ID.String()[:8]
		destRel = CollisionPath(action.DestPath, suffix)
		destAbs = filepath.Join(req.DestRoot, destRel)
		collision = &PathCollisionEvent{OriginalPath: action.DestPath, WrittenPath: destRel, ID: action.ID}
	}

	block, body, err := header.Split(raw)
	if err != nil {
		return collision, fmt.Errorf("malformed header in %s: %w", action.SourcePath, err)
	}
	written := header.NewBlock()
	if block != nil {
		for _, k := range block.Keys() {
			if header.Classify(k, req.Ephemeral) == header.BucketReserved {
				v, _ := block.Get(k)
				written.Set(k, v)
			}
		}
	}
	identity.EnsureIDFirst(written)

	content, err := header.Render(written, body)
	if err != nil {
		return collision, err
	}
	if err := atomicfile.Write(destAbs, content, 0o644); err != nil {
		return collision, fmt.Errorf("failed to write %s: %w", destRel, err)
	}

	norm, err := normalize.Normalize(content, req.Ephemeral)
	if err != nil {
		return collision, err
	}
	baseline, err := req.DestObjects.Put(norm.Body)
	if err != nil {
		return collision, err
	}

	recordResult(req.SourceJournal, action.ID, peer.ResultCreate, norm.BodyOnly, norm.BodyOnly, baseline)
	recordResult(req.DestJournal, action.ID, peer.ResultCreate, norm.BodyOnly, norm.BodyOnly, baseline)

	return collision, nil
}

func applyUpdate(req Request, action plan.Action) error {
	srcAbs := filepath.Join(req.SourceRoot, action.SourcePath)
	srcRaw, err := os.ReadFile(srcAbs)
	if err != nil {
		return fmt.Errorf("failed to read source %s: %w", action.SourcePath, err)
	}
	destAbs := filepath.Join(req.DestRoot, action.DestPath)
	dstRaw, err := os.ReadFile(destAbs)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read destination %s: %w", action.DestPath, err)
	}

	srcHeader, srcBody, err := header.Split(srcRaw)
	if err != nil {
		return fmt.Errorf("malformed source header in %s: %w", action.SourcePath, err)
	}
	var dstHeader *header.Block
	if dstRaw != nil {
		dstHeader, _, err = header.Split(dstRaw)
		if err != nil {
			return fmt.Errorf("malformed destination header in %s: %w", action.DestPath, err)
		}
	}

	mergedHeader := merge.MergeHeader(srcHeader, dstHeader, req.Ephemeral)
	content, err := header.Render(mergedHeader, srcBody)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(destAbs, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", action.DestPath, err)
	}

	norm, err := normalize.Normalize(content, req.Ephemeral)
	if err != nil {
		return err
	}
	baseline, err := req.DestObjects.Put(norm.Body)
	if err != nil {
		return err
	}

	recordResult(req.SourceJournal, action.ID, peer.ResultUpdate, norm.BodyOnly, norm.BodyOnly, baseline)
	recordResult(req.DestJournal, action.ID, peer.ResultUpdate, norm.BodyOnly, norm.BodyOnly, baseline)
	return nil
}

func applySkip(req Request, action plan.Action) error {
	if action.SourceDigest == "" || action.SourceDigest != action.DestDigest {
		return nil
	}
	digest := normalize.Digest(action.SourceDigest)
	recordResult(req.SourceJournal, action.ID, peer.ResultSkip, digest, digest, digest)
	recordResult(req.DestJournal, action.ID, peer.ResultSkip, digest, digest, digest)
	return nil
}

func applyMerge(req Request, action plan.Action, nowFn func() time.Time) (string, error) {
	srcAbs := filepath.Join(req.SourceRoot, action.SourcePath)
	destAbs := filepath.Join(req.DestRoot, action.DestPath)

	srcRaw, err := os.ReadFile(srcAbs)
	if err != nil {
		return "", fmt.Errorf("failed to read source %s: %w", action.SourcePath, err)
	}
	dstRaw, err := os.ReadFile(destAbs)
	if err != nil {
		return "", fmt.Errorf("failed to read destination %s: %w", action.DestPath, err)
	}

	baseBody, ok, err := req.DestObjects.Get(normalize.Digest(action.BaselineDigest))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing baseline object %s", action.BaselineDigest)
	}

	srcHeader, _, err := header.Split(srcRaw)
	if err != nil {
		return "", fmt.Errorf("malformed source header in %s: %w", action.SourcePath, err)
	}
	dstHeader, _, err := header.Split(dstRaw)
	if err != nil {
		return "", fmt.Errorf("malformed destination header in %s: %w", action.DestPath, err)
	}

	srcNorm, err := normalize.Normalize(srcRaw, req.Ephemeral)
	if err != nil {
		return "", err
	}
	dstNorm, err := normalize.Normalize(dstRaw, req.Ephemeral)
	if err != nil {
		return "", err
	}

	labels := merge.Labels{Source: req.SourceVaultID, Dest: req.DestVaultID}
	mergedHeader, bodyResult := merge.ThreeWay(
		merge.Document{Body: string(baseBody)},
		merge.Document{Header: srcHeader, Body: string(srcNorm.Body)},
		merge.Document{Header: dstHeader, Body: string(dstNorm.Body)},
		req.Ephemeral,
		labels,
	)

	if len(bodyResult.Hunks) == 0 {
		content, err := header.Render(mergedHeader, []byte(bodyResult.Merged))
		if err != nil {
			return "", err
		}
		if err := atomicfile.Write(destAbs, content, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", action.DestPath, err)
		}
		norm, err := normalize.Normalize(content, req.Ephemeral)
		if err != nil {
			return "", err
		}
		baseline, err := req.DestObjects.Put(norm.Body)
		if err != nil {
			return "", err
		}
		recordResult(req.SourceJournal, action.ID, peer.ResultMerge, srcNorm.BodyOnly, dstNorm.BodyOnly, baseline)
		recordResult(req.DestJournal, action.ID, peer.ResultMerge, srcNorm.BodyOnly, dstNorm.BodyOnly, baseline)
		return "", nil
	}

	return materializeConflict(req, action, mergedHeader, bodyResult.Merged, nowFn)
}

func applyConflict(req Request, action plan.Action, nowFn func() time.Time) (string, error) {
	srcAbs := filepath.Join(req.SourceRoot, action.SourcePath)
	destAbs := filepath.Join(req.DestRoot, action.DestPath)

	srcRaw, err := os.ReadFile(srcAbs)
	if err != nil {
		return "", fmt.Errorf("failed to read source %s: %w", action.SourcePath, err)
	}
	dstRaw, err := os.ReadFile(destAbs)
	if err != nil {
		return "", fmt.Errorf("failed to read destination %s: %w", action.DestPath, err)
	}

	srcHeader, srcBody, err := header.Split(srcRaw)
	if err != nil {
		return "", fmt.Errorf("malformed source header in %s: %w", action.SourcePath, err)
	}
	dstHeader, dstBody, err := header.Split(dstRaw)
	if err != nil {
		return "", fmt.Errorf("malformed destination header in %s: %w", action.DestPath, err)
	}

	labels := merge.Labels{Source: req.SourceVaultID, Dest: req.DestVaultID}
	mergedHeader := merge.MergeHeader(srcHeader, dstHeader, req.Ephemeral)
	whole := merge.InterleaveWhole(
		merge.Document{Header: srcHeader, Body: string(srcBody)},
		merge.Document{Header: dstHeader, Body: string(dstBody)},
		labels,
	)

	return materializeConflict(req, action, mergedHeader, whole.Merged, nowFn)
}

// materializeConflict writes a sibling conflict file carrying the merged
// skeleton and embedded markers, without touching the destination's
// original content, and records CONFLICT in peer state (the baseline is
// left unchanged, preserving a recoverable ancestor).
func materializeConflict(req Request, action plan.Action, mergedHeader *header.Block, body string, nowFn func() time.Time) (string, error) {
	at := nowFn()
	conflictRel := ConflictPath(action.DestPath, at)
	conflictAbs := filepath.Join(req.DestRoot, conflictRel)

	ch := conflictHeader(action.ID.String(), at)
	for _, k := range mergedHeader.Keys() {
		if k == header.KeyID {
			continue
		}
		v, _ := mergedHeader.Get(k)
		ch.Set(k, v)
	}

	content, err := header.Render(ch, []byte(body))
	if err != nil {
		return "", err
	}
	if err := atomicfile.Write(conflictAbs, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write conflict file %s: %w", conflictRel, err)
	}

	recordResult(req.SourceJournal, action.ID, peer.ResultConflict, normalize.Digest(action.SourceDigest), normalize.Digest(action.DestDigest), normalize.Digest(action.BaselineDigest))
	recordResult(req.DestJournal, action.ID, peer.ResultConflict, normalize.Digest(action.SourceDigest), normalize.Digest(action.DestDigest), normalize.Digest(action.BaselineDigest))
	return conflictRel, nil
}

func recordResult(j *peer.Journal, id uuid.UUID, result peer.Result, srcDigest, dstDigest, baseline normalize.Digest) {
	if j == nil {
		return
	}
	j.Update(id, func(fs *peer.FileState) {
		fs.LastResult = result
		if srcDigest != "" {
			fs.SourceDigest = srcDigest
		}
		if dstDigest != "" {
			fs.DestDigest = dstDigest
		}
		if baseline != "" {
			fs.BaseObjectDigest = baseline
		}
	})
}
