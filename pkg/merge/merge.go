package merge

import (
	"github.com/castsync/cast/pkg/header"
)

// Document is normalized header+body content ready for merge.
type Document struct {
	Header *header.Block
	Body   string
}

// ThreeWay merges a base, source, and destination Document and returns
// the merged header, merged body Result, and any unresolved hunks.
func ThreeWay(base, source, dest Document, ephemeral map[string]struct{}, labels Labels) (*header.Block, Result) {
	mergedHeader := MergeHeader(source.Header, dest.Header, ephemeral)
	bodyResult := MergeBody(base.Body, source.Body, dest.Body, labels)
	return mergedHeader, bodyResult
}

// InterleaveWhole constructs a planner-direct CONFLICT result: rather
// than merging block-by-block against a (missing) baseline, it
// interleaves the entire source and destination bodies as a single
// hunk, matching the Applier's CONFLICT (planner-direct) semantics.
func InterleaveWhole(source, dest Document, labels Labels) Result {
	hunk := Hunk{SourceContent: source.Body, DestContent: dest.Body}
	rendered := renderConflictMarkers(hunk, labels)
	hunk.ByteStart = 0
	hunk.ByteEnd = len(rendered)
	return Result{Merged: rendered, Hunks: []Hunk{hunk}}
}
