// Package idoc models the nested IDoc record as a tagged tree and renders it
// into the namespaced XML dialect expected by the receiving SAP endpoint.
package idoc

// Kind discriminates the node variants.
type Kind int

const (
	// KindScalar is a leaf string value.
	KindScalar Kind = iota
	// KindSection is an ordered mapping of tag name to child node.
	KindSection
	// KindGroup is an ordered list of sibling records sharing one tag.
	KindGroup
)

// Node is one element of the record tree. Sections preserve insertion order,
// which determines segment order in the rendered document.
type Node struct {
	kind     Kind
	scalar   string
	keys     []string
	children map[string]*Node
	items    []*Node
}

// String returns a scalar node.
func String(v string) *Node {
	return &Node{kind: KindScalar, scalar: v}
}

// Section returns an empty ordered section.
func Section() *Node {
	return &Node{kind: KindSection, children: map[string]*Node{}}
}

// Group returns a group of sibling records.
func Group(items ...*Node) *Node {
	return &Node{kind: KindGroup, items: items}
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Value returns the scalar value; empty for non-scalars.
func (n *Node) Value() string { return n.scalar }

// Set adds or replaces a child under the given tag. First insertion fixes the
// tag's position. Returns the section for chaining.
func (n *Node) Set(name string, child *Node) *Node {
	if n.kind != KindSection {
		return n
	}
	if _, exists := n.children[name]; !exists {
		n.keys = append(n.keys, name)
	}
	n.children[name] = child
	return n
}

// SetString adds a scalar child.
func (n *Node) SetString(name, v string) *Node {
	return n.Set(name, String(v))
}

// Keys returns the section's tag names in insertion order.
func (n *Node) Keys() []string { return n.keys }

// Child returns the named child, or nil.
func (n *Node) Child(name string) *Node {
	if n.kind != KindSection {
		return nil
	}
	return n.children[name]
}

// Append adds a record to a group and returns the group.
func (n *Node) Append(item *Node) *Node {
	if n.kind != KindGroup {
		return n
	}
	n.items = append(n.items, item)
	return n
}

// Items returns the group's records.
func (n *Node) Items() []*Node { return n.items }

// Len returns the number of children (section), items (group) or scalar bytes.
func (n *Node) Len() int {
	switch n.kind {
	case KindSection:
		return len(n.keys)
	case KindGroup:
		return len(n.items)
	default:
		return len(n.scalar)
	}
}
