// Package cast aggregates a sync run into a report and exit code, and
// defines the structural/filesystem/planning error types that feed it
// (the duplicate-identifier and lock-timeout errors live in pkg/identity
// and pkg/vault). It imports pkg/engine rather than the reverse, so the
// lower-level packages stay free of CLI concerns.
package cast

import "fmt"

// MalformedHeaderError reports a document whose header block could not
// be parsed. Per-file; the file is skipped and the run continues.
type MalformedHeaderError struct {
	Path string
	Err  error
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header in %s: %v", e.Path, e.Err)
}
func (e *MalformedHeaderError) Unwrap() error { return e.Err }

// EncodingError reports a document that failed normalization, usually
// due to invalid UTF-8. Line endings are always converted by the
// normalizer and never cause this error.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("encoding error in %s: %v", e.Path, e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

// IndexCorruptedError reports an unreadable or unparsable index.json.
// Vault-wide; it aborts the run.
type IndexCorruptedError struct {
	Path string
	Err  error
}

func (e *IndexCorruptedError) Error() string {
	return fmt.Sprintf("corrupt index at %s: %v", e.Path, e.Err)
}
func (e *IndexCorruptedError) Unwrap() error { return e.Err }

// PathCollisionError reports a CREATE whose natural destination path was
// already occupied by a different identifier. Non-fatal: the action
// still succeeds, written to a suffixed sibling path.
type PathCollisionError struct {
	OriginalPath string
	WrittenPath  string
}

func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("path collision: %s written to %s", e.OriginalPath, e.WrittenPath)
}

// IneligiblePairError reports a document whose participation list does
// not name both vaults of the pair. Downgraded to a silent skip by the planner;
// this type exists for callers that want to report it explicitly.
type IneligiblePairError struct {
	ID string
}

func (e *IneligiblePairError) Error() string {
	return fmt.Sprintf("document %s does not participate in this vault pair", e.ID)
}
