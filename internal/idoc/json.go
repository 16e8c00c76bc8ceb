package idoc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The queue persists records as JSON text. Sections must round-trip with their
// key order intact, so encoding and decoding walk the tree by hand instead of
// going through a Go map.

// MarshalJSON renders the node as JSON: scalars as strings, groups as arrays,
// sections as objects in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, n *Node) error {
	switch n.kind {
	case KindScalar:
		b, err := json.Marshal(n.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindGroup:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindSection:
		buf.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeNode(buf, n.children[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("idoc: unknown node kind %d", n.kind)
	}
	return nil
}

// Decode parses a persisted JSON record back into a node tree. Numbers and
// booleans are tolerated and folded into scalar strings.
func Decode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("idoc: trailing data after record")
	}
	return node, nil
}

// UnmarshalJSON implements json.Unmarshaler via Decode.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeSection(dec)
		case '[':
			return decodeGroup(dec)
		default:
			return nil, fmt.Errorf("idoc: unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return String(t.String()), nil
	case bool:
		if t {
			return String("true"), nil
		}
		return String("false"), nil
	case nil:
		return String(""), nil
	default:
		return nil, fmt.Errorf("idoc: unexpected token %v", tok)
	}
}

func decodeSection(dec *json.Decoder) (*Node, error) {
	section := Section()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("idoc: non-string object key %v", keyTok)
		}
		child, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		section.Set(key, child)
	}
	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return section, nil
}

func decodeGroup(dec *json.Decoder) (*Node, error) {
	group := Group()
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		group.Append(item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return group, nil
}
