package header

import "strings"

// Bucket is the classification of a header key for digest and merge policy.
type Bucket int

const (
	// BucketLocal keys are preserved from the destination and excluded from
	// cross-vault routing decisions.
	BucketLocal Bucket = iota
	// BucketReserved keys are cross-vault identity/routing fields; the
	// source side is authoritative for them during merge.
	BucketReserved
	// BucketEphemeral keys are excluded from digests and from merge
	// entirely; they never induce sync activity.
	BucketEphemeral
)

// KeyID is the reserved key carrying the document's stable identifier.
// It must always be the first header key.
const KeyID = "cast-id"

// reservedKeys are the header keys synchronized across vaults: the
// identifier, the participation list, document type, protocol version,
// and (per the pre-distillation implementation's field-ordering list)
// codebases.
var reservedKeys = map[string]struct{}{
	KeyID:            {},
	"cast-vaults":    {},
	"cast-type":      {},
	"cast-version":   {},
	"cast-codebases": {},
}

// CastFieldOrder lists the well-known reserved keys in the original
// implementation's field order: identifier first, then type and version,
// then the participation list and codebases. Nothing in this module
// reorders headers by it.
var CastFieldOrder = []string{KeyID, "cast-type", "cast-version", "cast-vaults", "cast-codebases"}

// Classify buckets a header key given the vault's configured ephemeral
// key set. Any other "cast-"-prefixed key is conservatively treated as
// reserved, so that new reserved fields introduced by a future protocol
// version do not silently leak as local metadata.
func Classify(key string, ephemeral map[string]struct{}) Bucket {
	if _, ok := ephemeral[key]; ok {
		return BucketEphemeral
	}
	if _, ok := reservedKeys[key]; ok {
		return BucketReserved
	}
	if strings.HasPrefix(key, "cast-") {
		return BucketReserved
	}
	return BucketLocal
}

// IsReservedKey reports whether key is a well-known reserved key (ignoring
// the ephemeral override, which only ever applies to local keys in
// practice since ephemeral keys are operator-configured local fields).
func IsReservedKey(key string) bool {
	if _, ok := reservedKeys[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "cast-")
}
