package outline

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrDuplicateGNX    = errors.New("duplicate gnx")
	ErrInvalidGNX      = errors.New("invalid gnx")
	ErrUnknownGNX      = errors.New("unknown gnx")
	ErrIndexOutOfRange = errors.New("child index out of range")
	ErrCycle           = errors.New("node would contain itself")
	ErrInvalidPosition = errors.New("invalid position")
)

// Outline is the arena of node records plus the ordered list of top-level
// slots. See the package documentation for the link invariants.
type Outline struct {
	nodes map[GNX]*Node
	roots []GNX
	holds map[GNX]int
	gen   *Generator
}

// New returns an empty outline that allocates identities from gen.
// A nil gen is replaced by a generator with a random session id.
func New(gen *Generator) *Outline {
	if gen == nil {
		gen = NewGenerator("", time.Now())
	}

	return &Outline{
		nodes: make(map[GNX]*Node),
		holds: make(map[GNX]int),
		gen:   gen,
	}
}

// Generator returns the outline's identity generator.
func (o *Outline) Generator() *Generator {
	return o.gen
}

// Lookup returns the record registered under gnx.
func (o *Outline) Lookup(gnx GNX) (*Node, bool) {
	n, ok := o.nodes[gnx]

	return n, ok
}

// Len returns the number of registered records, reachable or not.
func (o *Outline) Len() int {
	return len(o.nodes)
}

// GNXs returns every registered identity in sorted order.
func (o *Outline) GNXs() []GNX {
	out := make([]GNX, 0, len(o.nodes))
	for gnx := range o.nodes {
		out = append(out, gnx)
	}

	slices.Sort(out)

	return out
}

// Register adds n to the arena. Registering the same record twice is a
// no-op; registering a different record under a used gnx fails.
func (o *Outline) Register(n *Node) error {
	if !ValidGNX(string(n.gnx)) {
		return fmt.Errorf("%w: %q", ErrInvalidGNX, n.gnx)
	}

	if existing, ok := o.nodes[n.gnx]; ok {
		if existing == n {
			return nil
		}

		return fmt.Errorf("%w: %s", ErrDuplicateGNX, n.gnx)
	}

	o.nodes[n.gnx] = n

	return nil
}

// NewGNX returns an identity that is not registered in o.
func (o *Outline) NewGNX() GNX {
	for {
		gnx := o.gen.Next()
		if _, used := o.nodes[gnx]; !used {
			return gnx
		}
	}
}

// NewNode allocates a fresh identity and registers a record for it.
// The record is not linked anywhere.
func (o *Outline) NewNode(headline, body string) *Node {
	n := MakeNode(o.NewGNX(), headline, body)
	o.nodes[n.gnx] = n

	return n
}

// Retain adds a hold on gnx. Held records survive [Outline.Collect] even
// when unreachable.
func (o *Outline) Retain(gnx GNX) {
	o.holds[gnx]++
}

// Release drops one hold taken by Retain.
func (o *Outline) Release(gnx GNX) {
	switch o.holds[gnx] {
	case 0:
	case 1:
		delete(o.holds, gnx)
	default:
		o.holds[gnx]--
	}
}

// Holds returns the number of holds on gnx.
func (o *Outline) Holds(gnx GNX) int {
	return o.holds[gnx]
}

// Collect removes every record that is neither reachable from a top-level
// slot nor held (directly or through a held ancestor record). It returns the
// removed identities in sorted order.
func (o *Outline) Collect() []GNX {
	keep := make(map[GNX]bool, len(o.nodes))

	var mark func(gnx GNX)

	mark = func(gnx GNX) {
		if keep[gnx] {
			return
		}

		n, ok := o.nodes[gnx]
		if !ok {
			return
		}

		keep[gnx] = true

		for _, c := range n.children {
			mark(c)
		}
	}

	for _, r := range o.roots {
		mark(r)
	}

	for gnx := range o.holds {
		mark(gnx)
	}

	var removed []GNX

	for gnx := range o.nodes {
		if !keep[gnx] {
			removed = append(removed, gnx)
		}
	}

	for _, gnx := range removed {
		delete(o.nodes, gnx)
	}

	slices.Sort(removed)

	return removed
}

// Rename re-keys the record registered as old to renamed and rewrites every
// handle that refers to it.
func (o *Outline) Rename(old, renamed GNX) error {
	n, ok := o.nodes[old]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGNX, old)
	}

	if old == renamed {
		return nil
	}

	if !ValidGNX(string(renamed)) {
		return fmt.Errorf("%w: %q", ErrInvalidGNX, renamed)
	}

	if _, used := o.nodes[renamed]; used {
		return fmt.Errorf("%w: %s", ErrDuplicateGNX, renamed)
	}

	delete(o.nodes, old)
	n.gnx = renamed
	o.nodes[renamed] = n

	for _, other := range o.nodes {
		replaceAll(other.children, old, renamed)
		replaceAll(other.parents, old, renamed)
	}

	replaceAll(o.roots, old, renamed)

	if h := o.holds[old]; h > 0 {
		delete(o.holds, old)
		o.holds[renamed] += h
	}

	return nil
}

// Roots returns the top-level slots in order.
func (o *Outline) Roots() []GNX {
	return slices.Clone(o.roots)
}

// AddRoot appends a top-level slot for gnx.
func (o *Outline) AddRoot(gnx GNX) error {
	return o.InsertChild(TopLevel, len(o.roots), gnx)
}

// InsertChild inserts child at index among the children of parent.
// parent may be [TopLevel].
func (o *Outline) InsertChild(parent GNX, index int, child GNX) error {
	c, ok := o.nodes[child]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGNX, child)
	}

	siblings, err := o.slotsOf(parent)
	if err != nil {
		return err
	}

	if index < 0 || index > len(siblings) {
		return fmt.Errorf("%w: %d (parent has %d children)", ErrIndexOutOfRange, index, len(siblings))
	}

	if parent != TopLevel && o.reaches(child, parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, child, parent)
	}

	o.link(parent, index, c)

	return nil
}

// RemoveChild unlinks the child slot at index and returns its identity.
// The record stays registered.
func (o *Outline) RemoveChild(parent GNX, index int) (GNX, error) {
	siblings, err := o.slotsOf(parent)
	if err != nil {
		return "", err
	}

	if index < 0 || index >= len(siblings) {
		return "", fmt.Errorf("%w: %d (parent has %d children)", ErrIndexOutOfRange, index, len(siblings))
	}

	return o.unlink(parent, index), nil
}

// ReplaceChildren makes children the complete child list of parent.
func (o *Outline) ReplaceChildren(parent GNX, children []GNX) error {
	if parent == TopLevel {
		return fmt.Errorf("%w: cannot replace top-level slots", ErrInvalidGNX)
	}

	p, ok := o.nodes[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGNX, parent)
	}

	for _, c := range children {
		if _, ok := o.nodes[c]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGNX, c)
		}

		if o.reaches(c, parent) {
			return fmt.Errorf("%w: %s under %s", ErrCycle, c, parent)
		}
	}

	for len(p.children) > 0 {
		o.unlink(parent, len(p.children)-1)
	}

	for i, c := range children {
		o.link(parent, i, o.nodes[c])
	}

	return nil
}

// State returns a snapshot of the record's headline, body and children.
func (o *Outline) State(gnx GNX) (NodeState, bool) {
	n, ok := o.nodes[gnx]
	if !ok {
		return NodeState{}, false
	}

	return NodeState{Headline: n.Headline, Body: n.Body, Children: slices.Clone(n.children)}, true
}

// Restore writes a snapshot taken by State back into the record.
func (o *Outline) Restore(gnx GNX, s NodeState) error {
	n, ok := o.nodes[gnx]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGNX, gnx)
	}

	if err := o.ReplaceChildren(gnx, s.Children); err != nil {
		return err
	}

	n.Headline = s.Headline
	n.Body = s.Body

	return nil
}

// RestoreAll writes several snapshots back. All affected child lists are
// cleared before any is set, so an intermediate state cannot look cyclic.
func (o *Outline) RestoreAll(states map[GNX]NodeState) error {
	keys := make([]GNX, 0, len(states))
	for gnx := range states {
		if _, ok := o.nodes[gnx]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGNX, gnx)
		}

		keys = append(keys, gnx)
	}

	slices.Sort(keys)

	for _, gnx := range keys {
		if err := o.ReplaceChildren(gnx, nil); err != nil {
			return err
		}
	}

	for _, gnx := range keys {
		if err := o.Restore(gnx, states[gnx]); err != nil {
			return err
		}
	}

	return nil
}

// Clone inserts a new occurrence of p's node directly after p and returns
// its position.
func (o *Outline) Clone(p Position) (Position, error) {
	if !p.Valid() {
		return Position{}, ErrInvalidPosition
	}

	o.link(p.ParentGNX(), p.index+1, o.nodes[p.gnx])

	q := p
	q.index++

	return q, nil
}

// Move unlinks p and inserts its node at index among the children of parent.
// index is interpreted after p has been removed.
func (o *Outline) Move(p Position, parent GNX, index int) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}

	if parent != TopLevel {
		if _, ok := o.nodes[parent]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGNX, parent)
		}

		if o.reaches(p.gnx, parent) {
			return fmt.Errorf("%w: %s under %s", ErrCycle, p.gnx, parent)
		}
	}

	n := o.nodes[p.gnx]
	o.unlink(p.ParentGNX(), p.index)

	siblings, _ := o.slotsOf(parent)
	if index < 0 || index > len(siblings) {
		o.link(p.ParentGNX(), p.index, n)

		return fmt.Errorf("%w: %d (parent has %d children)", ErrIndexOutOfRange, index, len(siblings))
	}

	o.link(parent, index, n)

	return nil
}

// Delete unlinks the slot at p. The record stays registered until
// collected.
func (o *Outline) Delete(p Position) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}

	o.unlink(p.ParentGNX(), p.index)

	return nil
}

func (o *Outline) slotsOf(parent GNX) ([]GNX, error) {
	if parent == TopLevel {
		return o.roots, nil
	}

	p, ok := o.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGNX, parent)
	}

	return p.children, nil
}

// slotAt returns the child handle at index, if any.
func (o *Outline) slotAt(parent GNX, index int) (GNX, bool) {
	siblings, err := o.slotsOf(parent)
	if err != nil || index < 0 || index >= len(siblings) {
		return "", false
	}

	return siblings[index], true
}

// reaches reports whether target is from or one of its descendants.
func (o *Outline) reaches(from, target GNX) bool {
	seen := make(map[GNX]bool)

	var walk func(gnx GNX) bool

	walk = func(gnx GNX) bool {
		if gnx == target {
			return true
		}

		if seen[gnx] {
			return false
		}

		seen[gnx] = true

		n, ok := o.nodes[gnx]
		if !ok {
			return false
		}

		return slices.ContainsFunc(n.children, walk)
	}

	return walk(from)
}

// slots counts the reachable slots n occupies.
func (o *Outline) slots(n *Node) int {
	count := len(n.parents)

	for _, r := range o.roots {
		if r == n.gnx {
			count++
		}
	}

	return count
}

func (o *Outline) live(gnx GNX) bool {
	if gnx == TopLevel {
		return true
	}

	n, ok := o.nodes[gnx]

	return ok && o.slots(n) > 0
}

func (o *Outline) refreshClone(n *Node) {
	n.cloned = o.slots(n) >= 2
}

// link inserts child into parent's slot list. The parent reference on the
// child is only recorded when the parent itself is reachable.
func (o *Outline) link(parent GNX, index int, child *Node) {
	before := o.slots(child)
	parentLive := o.live(parent)

	if parent == TopLevel {
		o.roots = slices.Insert(o.roots, index, child.gnx)
	} else {
		p := o.nodes[parent]
		p.children = slices.Insert(p.children, index, child.gnx)

		if parentLive {
			child.parents = append(child.parents, parent)
		}
	}

	if before == 0 && o.slots(child) > 0 {
		o.attach(child)
	}

	o.refreshClone(child)
}

func (o *Outline) unlink(parent GNX, index int) GNX {
	parentLive := o.live(parent)

	var gnx GNX

	if parent == TopLevel {
		gnx = o.roots[index]
		o.roots = slices.Delete(o.roots, index, index+1)
	} else {
		p := o.nodes[parent]
		gnx = p.children[index]
		p.children = slices.Delete(p.children, index, index+1)
	}

	child := o.nodes[gnx]

	if parent != TopLevel && parentLive {
		child.parents = removeOne(child.parents, parent)
	}

	if o.slots(child) == 0 {
		o.detach(child)
	}

	o.refreshClone(child)

	return gnx
}

// attach records n as a parent of its children after n became reachable.
func (o *Outline) attach(n *Node) {
	for _, gnx := range n.children {
		c := o.nodes[gnx]
		before := o.slots(c)
		c.parents = append(c.parents, n.gnx)

		if before == 0 {
			o.attach(c)
		}

		o.refreshClone(c)
	}
}

// detach drops n from its children's parent lists after n became
// unreachable. The child list of n itself is kept.
func (o *Outline) detach(n *Node) {
	for _, gnx := range n.children {
		c := o.nodes[gnx]
		c.parents = removeOne(c.parents, n.gnx)

		if o.slots(c) == 0 {
			o.detach(c)
		}

		o.refreshClone(c)
	}
}

func removeOne(list []GNX, gnx GNX) []GNX {
	i := slices.Index(list, gnx)
	if i < 0 {
		return list
	}

	return slices.Delete(list, i, i+1)
}

func replaceAll(list []GNX, from, to GNX) {
	for i, g := range list {
		if g == from {
			list[i] = to
		}
	}
}
