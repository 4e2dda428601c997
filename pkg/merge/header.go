// Package merge implements the three-way merge of normalized document
// content: a key-wise header merge followed by a block-wise body merge
// over heading boundaries.
package merge

import (
	"github.com/castsync/cast/pkg/header"
	"github.com/castsync/cast/pkg/identity"
)

// MergeHeader merges a destination's header with a source's header.
// Reserved/cross-vault keys (identifier, participation list, type,
// version, codebases) are taken from source, since source is
// authoritative for cross-vault identity and routing. Every other key is
// taken from destination, so local categorization survives a sync. The
// identifier is placed first; destination's original key order is
// preserved for the keys it keeps, with source-only keys appended.
func MergeHeader(source, dest *header.Block, ephemeral map[string]struct{}) *header.Block {
	out := header.NewBlock()

	if dest != nil {
		for _, k := range dest.Keys() {
			if header.Classify(k, ephemeral) != header.BucketLocal {
				continue
			}
			v, _ := dest.Get(k)
			out.Set(k, v)
		}
	}

	if source != nil {
		for _, k := range source.Keys() {
			if header.Classify(k, ephemeral) == header.BucketLocal {
				continue
			}
			v, _ := source.Get(k)
			out.Set(k, v)
		}
	}

	identity.EnsureIDFirst(out)
	return out
}
