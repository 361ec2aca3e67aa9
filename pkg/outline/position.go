package outline

import (
	"slices"
	"strconv"
	"strings"
)

type frame struct {
	gnx   GNX
	index int
}

// Position is one occurrence of a node in the tree: the node's identity,
// its index among its siblings, and the chain of ancestors (outermost first)
// that leads to it. The zero Position is invalid.
type Position struct {
	o     *Outline
	stack []frame
	gnx   GNX
	index int
}

// IsZero reports whether p is the zero Position.
func (p Position) IsZero() bool {
	return p.o == nil
}

// Outline returns the outline p belongs to.
func (p Position) Outline() *Outline {
	return p.o
}

// GNX returns the identity of the node at p.
func (p Position) GNX() GNX {
	return p.gnx
}

// Node returns the record at p, or nil for an invalid position.
func (p Position) Node() *Node {
	if p.o == nil {
		return nil
	}

	return p.o.nodes[p.gnx]
}

// Headline returns the node's headline.
func (p Position) Headline() string {
	if n := p.Node(); n != nil {
		return n.Headline
	}

	return ""
}

// Body returns the node's body.
func (p Position) Body() string {
	if n := p.Node(); n != nil {
		return n.Body
	}

	return ""
}

// Level returns the depth of p: 0 for top-level positions.
func (p Position) Level() int {
	return len(p.stack)
}

// ChildIndex returns p's index among its siblings.
func (p Position) ChildIndex() int {
	return p.index
}

// ParentGNX returns the identity of p's parent, or [TopLevel].
func (p Position) ParentGNX() GNX {
	if len(p.stack) == 0 {
		return TopLevel
	}

	return p.stack[len(p.stack)-1].gnx
}

// Parent returns the position of p's parent, or the zero Position for
// top-level positions.
func (p Position) Parent() Position {
	if p.o == nil || len(p.stack) == 0 {
		return Position{}
	}

	top := p.stack[len(p.stack)-1]

	return Position{
		o:     p.o,
		stack: p.stack[: len(p.stack)-1 : len(p.stack)-1],
		gnx:   top.gnx,
		index: top.index,
	}
}

// Ancestors returns p's ancestors, nearest first.
func (p Position) Ancestors() []Position {
	var out []Position

	for q := p.Parent(); !q.IsZero(); q = q.Parent() {
		out = append(out, q)
	}

	return out
}

// NumChildren returns the number of children of the node at p.
func (p Position) NumChildren() int {
	if n := p.Node(); n != nil {
		return len(n.children)
	}

	return 0
}

// HasChildren reports whether the node at p has children.
func (p Position) HasChildren() bool {
	return p.NumChildren() > 0
}

// Child returns the position of the i-th child, or the zero Position.
func (p Position) Child(i int) Position {
	n := p.Node()
	if n == nil || i < 0 || i >= len(n.children) {
		return Position{}
	}

	stack := make([]frame, len(p.stack), len(p.stack)+1)
	copy(stack, p.stack)
	stack = append(stack, frame{gnx: p.gnx, index: p.index})

	return Position{o: p.o, stack: stack, gnx: n.children[i], index: i}
}

// FirstChild returns the first child's position, or the zero Position.
func (p Position) FirstChild() Position {
	return p.Child(0)
}

// Children returns the positions of all children in order.
func (p Position) Children() []Position {
	n := p.NumChildren()
	out := make([]Position, 0, n)

	for i := range n {
		out = append(out, p.Child(i))
	}

	return out
}

// Next returns the next sibling, or the zero Position.
func (p Position) Next() Position {
	if p.o == nil {
		return Position{}
	}

	siblings, err := p.o.slotsOf(p.ParentGNX())
	if err != nil || p.index+1 >= len(siblings) {
		return Position{}
	}

	return Position{o: p.o, stack: p.stack, gnx: siblings[p.index+1], index: p.index + 1}
}

// ThreadNext returns the next position in outline (preorder) order.
func (p Position) ThreadNext() Position {
	if p.HasChildren() {
		return p.FirstChild()
	}

	return p.AfterTree()
}

// AfterTree returns the first position after p's subtree in outline order.
func (p Position) AfterTree() Position {
	for q := p; !q.IsZero(); q = q.Parent() {
		if next := q.Next(); !next.IsZero() {
			return next
		}
	}

	return Position{}
}

// Subtree returns every descendant of p in preorder, excluding p itself.
func (p Position) Subtree() []Position {
	var out []Position

	var walk func(q Position)

	walk = func(q Position) {
		for _, c := range q.Children() {
			out = append(out, c)
			walk(c)
		}
	}

	walk(p)

	return out
}

// SelfAndSubtree returns p followed by its descendants in preorder.
func (p Position) SelfAndSubtree() []Position {
	return append([]Position{p}, p.Subtree()...)
}

// IsCloned reports whether the node at p is a clone.
func (p Position) IsCloned() bool {
	if n := p.Node(); n != nil {
		return n.cloned
	}

	return false
}

// Key returns the index path of p as a dotted string, e.g. "0.2.1".
// Keys are unique among the positions of one outline state.
func (p Position) Key() string {
	var b strings.Builder

	for _, f := range p.stack {
		b.WriteString(strconv.Itoa(f.index))
		b.WriteByte('.')
	}

	b.WriteString(strconv.Itoa(p.index))

	return b.String()
}

// Path returns the index path of p, outermost index first.
func (p Position) Path() []int {
	path := make([]int, 0, len(p.stack)+1)
	for _, f := range p.stack {
		path = append(path, f.index)
	}

	return append(path, p.index)
}

// Valid reports whether every frame of p still matches the outline.
func (p Position) Valid() bool {
	if p.o == nil {
		return false
	}

	parent := TopLevel

	for _, f := range append(slices.Clip(p.stack), frame{gnx: p.gnx, index: p.index}) {
		gnx, ok := p.o.slotAt(parent, f.index)
		if !ok || gnx != f.gnx {
			return false
		}

		parent = f.gnx
	}

	return true
}

// Equal reports whether p and q denote the same occurrence.
func (p Position) Equal(q Position) bool {
	return p.o == q.o && p.gnx == q.gnx && p.index == q.index && slices.Equal(p.stack, q.stack)
}

// IsAncestorOf reports whether p is a strict ancestor of q.
func (p Position) IsAncestorOf(q Position) bool {
	if len(p.stack) >= len(q.stack) {
		return false
	}

	f := q.stack[len(p.stack)]

	return f.gnx == p.gnx && f.index == p.index && slices.Equal(p.stack, q.stack[:len(p.stack)])
}

// RootAt returns the position of the i-th top-level slot, or the zero
// Position.
func (o *Outline) RootAt(i int) Position {
	if i < 0 || i >= len(o.roots) {
		return Position{}
	}

	return Position{o: o, gnx: o.roots[i], index: i}
}

// FirstPosition returns the first top-level position.
func (o *Outline) FirstPosition() Position {
	return o.RootAt(0)
}

// AllPositions returns every position of the outline in outline order.
func (o *Outline) AllPositions() []Position {
	var out []Position

	for i := range o.roots {
		out = append(out, o.RootAt(i).SelfAndSubtree()...)
	}

	return out
}

// PositionAt resolves an index path such as the one returned by
// [Position.Key]. It returns the zero Position when the path does not exist.
func (o *Outline) PositionAt(path ...int) Position {
	if len(path) == 0 {
		return Position{}
	}

	p := o.RootAt(path[0])

	for _, i := range path[1:] {
		if p.IsZero() {
			return p
		}

		p = p.Child(i)
	}

	return p
}

// ParseKey converts a dotted key into an index path.
func ParseKey(key string) ([]int, bool) {
	parts := strings.Split(key, ".")
	path := make([]int, 0, len(parts))

	for _, part := range parts {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, false
		}

		path = append(path, i)
	}

	return path, true
}
