package header

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the fence marking the start and end of a header block.
const Delimiter = "---"

// Block is an order-preserving mapping of header keys to Values. Order
// matters: the identifier key must come first, and merge/serialize
// preserve the destination's original key order where possible.
type Block struct {
	keys   []string
	values map[string]Value
}

// NewBlock returns an empty Block.
func NewBlock() *Block {
	return &Block{values: make(map[string]Value)}
}

// Keys returns the keys in their current order.
func (b *Block) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len reports the number of keys.
func (b *Block) Len() int { return len(b.keys) }

// Get returns the value for a key and whether it is present.
func (b *Block) Get(key string) (Value, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Set inserts or replaces a key, appending new keys to the end.
func (b *Block) Set(key string, v Value) {
	if _, exists := b.values[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.values[key] = v
}

// Delete removes a key if present.
func (b *Block) Delete(key string) {
	if _, exists := b.values[key]; !exists {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// MoveToFront reorders key to be first, if present.
func (b *Block) MoveToFront(key string) {
	if _, exists := b.values[key]; !exists {
		return
	}
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
	b.keys = append([]string{key}, b.keys...)
}

// Clone returns a deep-enough copy for independent mutation of key order.
func (b *Block) Clone() *Block {
	out := NewBlock()
	for _, k := range b.keys {
		out.Set(k, b.values[k])
	}
	return out
}

// Equal reports whether two blocks have the same keys mapped to equal
// values, irrespective of order.
func (b *Block) Equal(other *Block) bool {
	if b.Len() != other.Len() {
		return false
	}
	for _, k := range b.keys {
		ov, ok := other.Get(k)
		if !ok {
			return false
		}
		if !b.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// Split separates raw file content into a header block and the body that
// follows it. If content does not begin with the delimiter, the header is
// nil and body is the entire content, matching the Markdown serializer's
// frontmatter-detection convention of requiring "---\n" (or "---\r\n") as
// the exact opening line.
func Split(content []byte) (block *Block, body []byte, err error) {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, content, nil
	}

	rest := content[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return nil, nil, fmt.Errorf("header started but no closing delimiter found")
	}

	yamlBytes := parts[0]
	tail := parts[1]
	tail = bytes.TrimPrefix(tail, []byte("\r\n"))
	tail = bytes.TrimPrefix(tail, []byte("\n"))

	var node yaml.Node
	if err := yaml.Unmarshal(yamlBytes, &node); err != nil {
		return nil, nil, fmt.Errorf("malformed header: %w", err)
	}

	block, err = blockFromNode(&node)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed header: %w", err)
	}

	return block, tail, nil
}

// blockFromNode walks a decoded yaml.Node document, preserving mapping
// key order as it appears on disk.
func blockFromNode(doc *yaml.Node) (*Block, error) {
	if len(doc.Content) == 0 {
		return NewBlock(), nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("header is not a mapping")
	}
	return blockFromMappingNode(mapping)
}

func blockFromMappingNode(mapping *yaml.Node) (*Block, error) {
	b := NewBlock()
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valNode := mapping.Content[i+1]
		v, err := valueFromNode(valNode)
		if err != nil {
			return nil, err
		}
		b.Set(keyNode.Value, v)
	}
	return b, nil
}

func valueFromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return Null, nil
		}
		return NewScalar(n.Value), nil
	case yaml.SequenceNode:
		items := make([]Value, len(n.Content))
		for i, c := range n.Content {
			v, err := valueFromNode(c)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return NewSequence(items), nil
	case yaml.MappingNode:
		b, err := blockFromMappingNode(n)
		if err != nil {
			return Value{}, err
		}
		return NewMapping(b), nil
	default:
		return Null, nil
	}
}

// Render serializes a header block and body back into file content, in
// the block's current key order, fenced by the delimiter.
func Render(block *Block, body []byte) ([]byte, error) {
	if block == nil || block.Len() == 0 {
		return body, nil
	}

	payload := make(map[string]interface{}, block.Len())
	for _, k := range block.keys {
		payload[k] = block.values[k].toYAML()
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(orderedMap{keys: block.keys, values: payload}); err != nil {
		return nil, fmt.Errorf("failed to serialize header: %w", err)
	}
	enc.Close()
	buf.WriteString(Delimiter + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// orderedMap implements yaml.Marshaler to emit keys in a fixed order,
// since map[string]interface{} would otherwise serialize in random order.
type orderedMap struct {
	keys   []string
	values map[string]interface{}
}

func (o orderedMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range o.keys {
		var keyNode, valNode yaml.Node
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		if err := valNode.Encode(o.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &keyNode, &valNode)
	}
	return node, nil
}

// ParseParticipationEntry parses one "<vault-id> (<role>)" entry.
func ParseParticipationEntry(s string) (vaultID, role string, ok bool) {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close < 0 || close < open {
		return "", "", false
	}
	vaultID = strings.TrimSpace(s[:open])
	role = strings.TrimSpace(s[open+1 : close])
	if vaultID == "" || (role != "cast" && role != "sync") {
		return "", "", false
	}
	return vaultID, role, true
}

// FormatParticipationEntry renders a single participation entry.
func FormatParticipationEntry(vaultID, role string) string {
	return fmt.Sprintf("%s (%s)", vaultID, role)
}
