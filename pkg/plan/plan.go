package plan

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/castsync/cast/pkg/header"
	"github.com/castsync/cast/pkg/index"
	"github.com/castsync/cast/pkg/normalize"
	"github.com/castsync/cast/pkg/objects"
	"github.com/castsync/cast/pkg/peer"
)

// ContentReader fetches the raw bytes of a vault-relative path, for the
// pre-baseline prefix-containment heuristic, which needs actual body
// content rather than just digests.
type ContentReader func(relPath string) ([]byte, error)

// Request bundles everything the planner needs to classify one pair of
// vaults. ForcedMode, when non-empty, overrides the mode implied by
// participation roles (operator-forced mirror).
type Request struct {
	LocalVaultID  string
	RemoteVaultID string
	ForcedMode    Mode

	SourceEntries []*index.Entry
	DestEntries   []*index.Entry

	// SourceJournal is the source vault's journal for (source, dest);
	// DestJournal is the destination vault's journal for (dest, source).
	// A common baseline is recognized only when both agree.
	SourceJournal *peer.Journal
	DestJournal   *peer.Journal

	Objects *objects.Store

	ReadSource ContentReader
	ReadDest   ContentReader
}

// Plan classifies every identifier in the union of source and
// destination entries into an action. It is a pure function of its
// inputs: identical Requests yield identical, identically ordered
// output. Ineligible identifiers (not jointly listed in cast-vaults) are
// elided entirely rather than emitted as SKIP.
func Plan(req Request) ([]Action, error) {
	bySrc := indexByID(req.SourceEntries)
	byDst := indexByID(req.DestEntries)

	ids := make(map[uuid.UUID]struct{})
	for id := range bySrc {
		ids[id] = struct{}{}
	}
	for id := range byDst {
		ids[id] = struct{}{}
	}

	var actions []Action
	for id := range ids {
		srcEntry, hasSrc := bySrc[id]
		dstEntry, hasDst := byDst[id]

		mode, eligible := resolveMode(req, srcEntry, dstEntry)
		if !eligible {
			continue
		}

		action, ok := classify(req, id, srcEntry, hasSrc, dstEntry, hasDst, mode)
		if !ok {
			continue
		}
		actions = append(actions, action)
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].DestPath != actions[j].DestPath {
			return actions[i].DestPath < actions[j].DestPath
		}
		return actions[i].ID.String() < actions[j].ID.String()
	})

	return actions, nil
}

func indexByID(entries []*index.Entry) map[uuid.UUID]*index.Entry {
	out := make(map[uuid.UUID]*index.Entry, len(entries))
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

// resolveMode determines eligibility and sync mode for one identifier.
// The participation list is the source's when it has one, else the
// destination's. An operator-forced mode (mirror) always applies once
// that list names both vaults; otherwise the mode is derived from the
// participating vaults' declared roles via EligibleMode.
func resolveMode(req Request, src, dst *index.Entry) (Mode, bool) {
	var participation header.ParticipationList
	switch {
	case src != nil && len(src.Participation) > 0:
		participation = src.Participation
	case dst != nil && len(dst.Participation) > 0:
		participation = dst.Participation
	default:
		return "", false
	}

	derived, eligible := EligibleMode(participation, req.LocalVaultID, req.RemoteVaultID)
	if !eligible {
		return "", false
	}
	if req.ForcedMode != "" {
		return req.ForcedMode, true
	}
	return derived, true
}

func classify(req Request, id uuid.UUID, src *index.Entry, hasSrc bool, dst *index.Entry, hasDst bool, mode Mode) (Action, bool) {
	switch {
	case hasSrc && !hasDst:
		return Action{ID: id, Type: Create, SourcePath: src.Path, DestPath: src.Path, SourceDigest: string(src.BodyDigest), Reason: "present only in source"}, true
	case !hasSrc && hasDst:
		// No action: the engine never propagates deletions across
		// peers (tombstone propagation is an open question the spec
		// declines to resolve). Mirror's operator-configured delete
		// is likewise not wired; see DESIGN.md.
		return Action{}, false
	default:
		return classifyBoth(req, id, src, dst, mode), true
	}
}

func classifyBoth(req Request, id uuid.UUID, src, dst *index.Entry, mode Mode) Action {
	base := Action{ID: id, SourcePath: src.Path, DestPath: dst.Path, SourceDigest: string(src.BodyDigest), DestDigest: string(dst.BodyDigest)}

	if src.BodyDigest == dst.BodyDigest {
		base.Type = Skip
		base.Reason = "body digests equal"
		return base
	}

	baseline, hasBaseline := peer.CommonBaseline(req.SourceJournal, req.DestJournal, id)
	if hasBaseline && req.Objects != nil && !req.Objects.Has(baseline) {
		base.Type = Conflict
		base.Reason = "recorded baseline object missing"
		return base
	}

	if !hasBaseline {
		switch mode {
		case Broadcast, Mirror:
			base.Type = Update
			base.Reason = "no baseline; " + string(mode) + " overwrites destination"
			return base
		default: // Bidirectional
			if action, resolved := tryPrefixHeuristic(req, id, src, dst); resolved {
				return action
			}
			base.Type = Conflict
			base.Reason = "no baseline; bidirectional cannot auto-resolve"
			return base
		}
	}

	base.BaselineDigest = string(baseline)
	srcChanged := src.BodyDigest != baseline
	dstChanged := dst.BodyDigest != baseline

	switch {
	case mode == Mirror:
		base.Type = Update
		base.Reason = "mirror overwrites destination"
	case srcChanged && !dstChanged:
		base.Type = Update
		base.Reason = "only source changed vs baseline"
	case !srcChanged && dstChanged:
		base.Type = Skip
		base.Reason = "only destination changed vs baseline"
	case srcChanged && dstChanged:
		if mode == Broadcast {
			base.Type = Update
			base.Reason = "both changed vs baseline; broadcast overwrites"
		} else {
			base.Type = Merge
			base.Reason = "both changed vs baseline"
		}
	default:
		base.Type = Skip
		base.Reason = "neither side changed vs baseline"
	}
	return base
}

// tryPrefixHeuristic handles the append-mostly case before a baseline
// has ever been agreed: if one side's body is a strict prefix of the
// other (ignoring trailing whitespace), that is not a conflict — the
// longer side wins without prompting the operator.
func tryPrefixHeuristic(req Request, id uuid.UUID, src, dst *index.Entry) (Action, bool) {
	if req.ReadSource == nil || req.ReadDest == nil {
		return Action{}, false
	}
	srcRaw, err := req.ReadSource(src.Path)
	if err != nil {
		return Action{}, false
	}
	dstRaw, err := req.ReadDest(dst.Path)
	if err != nil {
		return Action{}, false
	}

	srcNorm, err := normalize.Normalize(srcRaw, nil)
	if err != nil {
		return Action{}, false
	}
	dstNorm, err := normalize.Normalize(dstRaw, nil)
	if err != nil {
		return Action{}, false
	}

	srcBody := strings.TrimRight(string(srcNorm.Body), "\n")
	dstBody := strings.TrimRight(string(dstNorm.Body), "\n")

	base := Action{ID: id, SourcePath: src.Path, DestPath: dst.Path, SourceDigest: string(src.BodyDigest), DestDigest: string(dst.BodyDigest)}

	switch {
	case strings.HasPrefix(dstBody, srcBody):
		base.Type = Skip
		base.Reason = "source is a prefix of destination"
		return base, true
	case strings.HasPrefix(srcBody, dstBody):
		base.Type = Update
		base.Reason = "destination is a prefix of source"
		return base, true
	default:
		return Action{}, false
	}
}
