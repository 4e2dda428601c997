// Package plan classifies, for each shared document identifier between
// a source and destination vault, the action the applier must take.
package plan

import (
	"github.com/castsync/cast/pkg/header"
)

// Mode is the sync direction/overwrite policy for a run, derived from
// the participating vaults' declared roles unless the operator forces
// mirror mode explicitly.
type Mode string

const (
	// Broadcast: source is the (cast) authority; destination is (sync).
	Broadcast Mode = "broadcast"
	// Bidirectional: both vaults are (sync) peers.
	Bidirectional Mode = "bidirectional"
	// Mirror: operator-forced overwrite, ignoring role-derived caution.
	Mirror Mode = "mirror"
)

// EligibleMode inspects a document's participation list and returns the
// mode implied by the (local, remote) role pair, and whether the pair
// is eligible to sync at all. A file is eligible only if cast-vaults
// lists both vault ids; this mirrors the pre-distillation
// should_sync_to_vault algorithm, which additionally requires the
// source to list itself before considering roles.
func EligibleMode(participation header.ParticipationList, localVaultID, remoteVaultID string) (Mode, bool) {
	localRole, localListed := participation.RoleOf(localVaultID)
	remoteRole, remoteListed := participation.RoleOf(remoteVaultID)
	if !localListed || !remoteListed {
		return "", false
	}

	switch {
	case localRole == header.RoleCast && remoteRole == header.RoleSync:
		return Broadcast, true
	case localRole == header.RoleSync && remoteRole == header.RoleSync:
		return Bidirectional, true
	case localRole == header.RoleSync && remoteRole == header.RoleCast:
		// A sync peer pushing into a cast authority: let the configured
		// sync mode (not role) determine behavior, matching the
		// original implementation's permissive fallthrough once both
		// vaults are listed.
		return Bidirectional, true
	case localRole == header.RoleCast && remoteRole == header.RoleCast:
		return Broadcast, true
	default:
		return "", false
	}
}
