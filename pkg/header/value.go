// Package header parses and serializes the structured metadata block that
// precedes a document's body, and classifies individual keys for digesting
// and merging.
package header

// Kind tags the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

// Value is a tagged variant over the shapes a header value can take:
// a scalar, a sequence, a nested mapping, or null. Representing header
// values this way lets merge policy dispatch on shape without reflection.
type Value struct {
	Kind     Kind
	Scalar   string
	Sequence []Value
	Mapping  *Block
}

// Null is the zero Value.
var Null = Value{Kind: KindNull}

// NewScalar wraps a string as a scalar Value.
func NewScalar(s string) Value { return Value{Kind: KindScalar, Scalar: s} }

// NewSequence wraps a slice of Values as a sequence Value.
func NewSequence(items []Value) Value { return Value{Kind: KindSequence, Sequence: items} }

// NewMapping wraps a Block as a mapping Value.
func NewMapping(b *Block) Value { return Value{Kind: KindMapping, Mapping: b} }

// Equal reports whether two Values are structurally identical.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindScalar:
		return v.Scalar == other.Scalar
	case KindSequence:
		if len(v.Sequence) != len(other.Sequence) {
			return false
		}
		for i := range v.Sequence {
			if !v.Sequence[i].Equal(other.Sequence[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if v.Mapping == nil || other.Mapping == nil {
			return v.Mapping == other.Mapping
		}
		return v.Mapping.Equal(other.Mapping)
	default:
		return false
	}
}

// toYAML converts a Value into a plain interface{} suitable for yaml.Marshal.
func (v Value) toYAML() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindScalar:
		return v.Scalar
	case KindSequence:
		out := make([]interface{}, len(v.Sequence))
		for i, item := range v.Sequence {
			out[i] = item.toYAML()
		}
		return out
	case KindMapping:
		out := make(map[string]interface{}, len(v.Mapping.keys))
		for _, k := range v.Mapping.keys {
			out[k] = v.Mapping.values[k].toYAML()
		}
		return out
	default:
		return nil
	}
}
