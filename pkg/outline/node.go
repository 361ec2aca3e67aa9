package outline

import "slices"

// Node is a node record. All positions showing the same GNX share one Node,
// so changing the headline or body of a clone changes every occurrence.
//
// Headline and Body may be assigned directly. Links are changed only through
// the owning [Outline].
type Node struct {
	gnx      GNX
	Headline string
	Body     string

	children []GNX
	parents  []GNX
	cloned   bool
}

// MakeNode returns an unregistered node record with the given identity.
// Use [Outline.Register] to add it to an outline.
func MakeNode(gnx GNX, headline, body string) *Node {
	return &Node{gnx: gnx, Headline: headline, Body: body}
}

// GNX returns the node's identity.
func (n *Node) GNX() GNX {
	return n.gnx
}

// Children returns a copy of the ordered child handles.
func (n *Node) Children() []GNX {
	return slices.Clone(n.children)
}

// Parents returns a copy of the parent multiset, one entry per child slot
// that references n from a reachable parent.
func (n *Node) Parents() []GNX {
	return slices.Clone(n.parents)
}

// NumChildren returns the number of child slots.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// HasChildren reports whether n has at least one child slot.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// IsCloned reports whether n occupies two or more slots of the outline.
func (n *Node) IsCloned() bool {
	return n.cloned
}

// NodeState is a snapshot of the mutable parts of a node record.
type NodeState struct {
	Headline string
	Body     string
	Children []GNX
}
