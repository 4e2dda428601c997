package header

import "fmt"

// Role is a vault's participation role within a document's sync graph.
type Role string

const (
	// RoleCast marks an authoritative broadcast source.
	RoleCast Role = "cast"
	// RoleSync marks a full bidirectional peer.
	RoleSync Role = "sync"
)

// Participant is one entry of a cast-vaults participation list.
type Participant struct {
	VaultID string
	Role    Role
}

// ParticipationList is the ordered cast-vaults sequence.
type ParticipationList []Participant

// ParseParticipationList decodes the cast-vaults Value (a sequence of
// "<vault-id> (<role>)" scalars) into a ParticipationList.
func ParseParticipationList(v Value) (ParticipationList, error) {
	if v.Kind == KindNull {
		return nil, nil
	}
	if v.Kind != KindSequence {
		return nil, fmt.Errorf("cast-vaults must be a sequence")
	}
	out := make(ParticipationList, 0, len(v.Sequence))
	for _, item := range v.Sequence {
		if item.Kind != KindScalar {
			return nil, fmt.Errorf("cast-vaults entry must be a scalar")
		}
		vaultID, role, ok := ParseParticipationEntry(item.Scalar)
		if !ok {
			return nil, fmt.Errorf("malformed cast-vaults entry %q", item.Scalar)
		}
		out = append(out, Participant{VaultID: vaultID, Role: Role(role)})
	}
	return out, nil
}

// ToValue renders a ParticipationList back into a header Value.
func (pl ParticipationList) ToValue() Value {
	items := make([]Value, len(pl))
	for i, p := range pl {
		items[i] = NewScalar(FormatParticipationEntry(p.VaultID, string(p.Role)))
	}
	return NewSequence(items)
}

// RoleOf returns the role a vault id holds in the list, if listed.
func (pl ParticipationList) RoleOf(vaultID string) (Role, bool) {
	for _, p := range pl {
		if p.VaultID == vaultID {
			return p.Role, true
		}
	}
	return "", false
}

// Lists reports whether vaultID appears anywhere in the list.
func (pl ParticipationList) Lists(vaultID string) bool {
	_, ok := pl.RoleOf(vaultID)
	return ok
}
