package plan

import "github.com/google/uuid"

// ActionType is the classification the planner emits for one identifier.
type ActionType string

const (
	Create ActionType = "CREATE"
	Update ActionType = "UPDATE"
	Skip   ActionType = "SKIP"
	Merge  ActionType = "MERGE"
	// Conflict is the planner-direct conflict branch: no baseline exists
	// to three-way merge against, so the applier interleaves whole
	// source/destination bodies.
	Conflict ActionType = "CONFLICT"
	// DeleteTombstone is named but never emitted; see DESIGN.md — tombstone
	// propagation is an open question the distilled spec declines to
	// resolve, so Cast does not sync deletions across peers.
	DeleteTombstone ActionType = "DELETE-TOMBSTONE"
)

// Action is one planner decision for a single identifier.
type Action struct {
	ID             uuid.UUID
	Type           ActionType
	SourcePath     string
	DestPath       string
	SourceDigest   string
	DestDigest     string
	BaselineDigest string
	Reason         string
}

// MissingBaselineError marks that peer state recorded a baseline digest
// whose object is absent from the store; the planner degrades this to a
// CONFLICT rather than risk silent data loss.
type MissingBaselineError struct {
	ID     uuid.UUID
	Digest string
}

func (e *MissingBaselineError) Error() string {
	return "missing baseline object " + e.Digest + " for " + e.ID.String()
}
