// Package identity manages per-document stable identifiers: generation,
// validation, injection into header blocks, and duplicate detection.
package identity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/castsync/cast/pkg/header"
)

// ID is a document's stable cross-vault identifier, a UUID v4.
type ID = uuid.UUID

// MalformedHeaderError wraps a header parse failure for a specific path.
type MalformedHeaderError struct {
	Path string
	Err  error
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header in %s: %v", e.Path, e.Err)
}

func (e *MalformedHeaderError) Unwrap() error { return e.Err }

// DuplicateIDError reports that two or more paths share an identifier.
type DuplicateIDError struct {
	ID    ID
	Paths []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate identifier %s shared by %v", e.ID, e.Paths)
}

// Generate returns a new random UUID v4.
func Generate() ID {
	return uuid.New()
}

// Parse validates that s is a well-formed UUID v4 identifier.
func Parse(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	if id.Version() != 4 {
		return ID{}, fmt.Errorf("identifier %q is not a UUID v4", s)
	}
	return id, nil
}

// Get returns the identifier carried by a header block, if present and
// well-formed.
func Get(block *header.Block) (ID, bool, error) {
	if block == nil {
		return ID{}, false, nil
	}
	v, ok := block.Get(header.KeyID)
	if !ok {
		return ID{}, false, nil
	}
	if v.Kind != header.KindScalar {
		return ID{}, false, fmt.Errorf("%s is not a scalar", header.KeyID)
	}
	id, err := Parse(v.Scalar)
	if err != nil {
		return ID{}, false, err
	}
	return id, true, nil
}

// EnsureIDFirst reorders an existing identifier key to the front of the
// block, if present. It is a no-op if the identifier is already first or
// absent.
func EnsureIDFirst(block *header.Block) {
	if block == nil {
		return
	}
	block.MoveToFront(header.KeyID)
}

// hasTriggerKey reports whether a header carries a key that makes a
// file eligible for automatic identifier injection: a file must already
// declare itself part of the sync graph (cast-vaults) or carry a
// document type (cast-type) before Cast will write an identifier into it.
func hasTriggerKey(block *header.Block) bool {
	if block == nil {
		return false
	}
	if _, ok := block.Get("cast-vaults"); ok {
		return true
	}
	if _, ok := block.Get("cast-type"); ok {
		return true
	}
	return false
}

// Inject assigns a fresh identifier to a header block that lacks one but
// carries a trigger key, inserting it as the first key; the other keys
// keep their existing order. It returns the generated id and whether an injection
// occurred. Files without a trigger key are left untouched.
func Inject(block *header.Block) (ID, bool) {
	if block == nil || !hasTriggerKey(block) {
		return ID{}, false
	}
	if _, ok := block.Get(header.KeyID); ok {
		EnsureIDFirst(block)
		return ID{}, false
	}

	id := Generate()
	reordered := header.NewBlock()
	reordered.Set(header.KeyID, header.NewScalar(id.String()))
	for _, k := range block.Keys() {
		v, _ := block.Get(k)
		reordered.Set(k, v)
	}
	*block = *reordered
	return id, true
}

// FindDuplicates scans a set of (id, path) pairs and returns any
// identifier claimed by more than one path.
func FindDuplicates(idsByPath map[string]ID) map[ID][]string {
	byID := make(map[ID][]string)
	for path, id := range idsByPath {
		byID[id] = append(byID[id], path)
	}
	dupes := make(map[ID][]string)
	for id, paths := range byID {
		if len(paths) > 1 {
			dupes[id] = paths
		}
	}
	return dupes
}
