package outline

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrStaleBead     = errors.New("outline changed since the operation")
)

// Bead is one undoable operation.
//
// Holds lists the records the closures refer to. They are retained while
// the bead is in the history, so [Outline.Collect] cannot reclaim a record
// that an undo or redo would link back in.
type Bead struct {
	Label string
	Undo  func() error
	Redo  func() error
	Holds []GNX
}

// Undoer is a linear undo history over one outline.
type Undoer struct {
	o     *Outline
	beads []Bead
	next  int
}

// NewUndoer returns an empty history for o.
func NewUndoer(o *Outline) *Undoer {
	return &Undoer{o: o}
}

// Outline returns the outline the history belongs to.
func (u *Undoer) Outline() *Outline {
	return u.o
}

// Do records an operation that has already been applied. Beads that were
// undone and not redone are discarded.
func (u *Undoer) Do(b Bead) {
	u.truncate(u.next)

	for _, gnx := range b.Holds {
		u.o.Retain(gnx)
	}

	u.beads = append(u.beads, b)
	u.next = len(u.beads)
}

// CanUndo reports whether there is an operation to undo.
func (u *Undoer) CanUndo() bool {
	return u.next > 0
}

// CanRedo reports whether there is an undone operation to redo.
func (u *Undoer) CanRedo() bool {
	return u.next < len(u.beads)
}

// UndoLabel returns the label of the operation Undo would revert.
func (u *Undoer) UndoLabel() string {
	if !u.CanUndo() {
		return ""
	}

	return u.beads[u.next-1].Label
}

// RedoLabel returns the label of the operation Redo would reapply.
func (u *Undoer) RedoLabel() string {
	if !u.CanRedo() {
		return ""
	}

	return u.beads[u.next].Label
}

// Undo reverts the most recent operation.
func (u *Undoer) Undo() error {
	if !u.CanUndo() {
		return ErrNothingToUndo
	}

	b := u.beads[u.next-1]
	if err := b.Undo(); err != nil {
		return fmt.Errorf("undo %s: %w", b.Label, err)
	}

	u.next--

	return nil
}

// Redo reapplies the most recently undone operation.
func (u *Undoer) Redo() error {
	if !u.CanRedo() {
		return ErrNothingToRedo
	}

	b := u.beads[u.next]
	if err := b.Redo(); err != nil {
		return fmt.Errorf("redo %s: %w", b.Label, err)
	}

	u.next++

	return nil
}

// Clear drops the whole history and its holds.
func (u *Undoer) Clear() {
	u.truncate(0)
	u.next = 0
}

func (u *Undoer) truncate(n int) {
	for _, b := range u.beads[n:] {
		for _, gnx := range b.Holds {
			u.o.Release(gnx)
		}
	}

	u.beads = u.beads[:n]
}

// InsertNode creates a node and links it at index under parent.
func (u *Undoer) InsertNode(parent GNX, index int, headline, body string) (*Node, error) {
	n := u.o.NewNode(headline, body)

	if err := u.o.InsertChild(parent, index, n.gnx); err != nil {
		delete(u.o.nodes, n.gnx)

		return nil, err
	}

	u.Do(u.slotBead("insert node", parent, index, n.gnx, false))

	return n, nil
}

// Clone clones p and records the operation.
func (u *Undoer) Clone(p Position) (Position, error) {
	q, err := u.o.Clone(p)
	if err != nil {
		return Position{}, err
	}

	u.Do(u.slotBead("clone node", q.ParentGNX(), q.index, q.gnx, false))

	return q, nil
}

// Delete unlinks p and records the operation.
func (u *Undoer) Delete(p Position) error {
	if err := u.o.Delete(p); err != nil {
		return err
	}

	u.Do(u.slotBead("delete node", p.ParentGNX(), p.index, p.gnx, true))

	return nil
}

// Move moves p and records the operation.
func (u *Undoer) Move(p Position, parent GNX, index int) error {
	from, fromIndex := p.ParentGNX(), p.index

	if err := u.o.Move(p, parent, index); err != nil {
		return err
	}

	gnx := p.gnx

	u.Do(Bead{
		Label: "move node",
		Holds: []GNX{gnx},
		Undo: func() error {
			return u.moveSlot(parent, index, from, fromIndex, gnx)
		},
		Redo: func() error {
			return u.moveSlot(from, fromIndex, parent, index, gnx)
		},
	})

	return nil
}

// slotBead builds a bead for an operation that added (removed=false) or
// removed (removed=true) the slot parent[index] holding gnx.
func (u *Undoer) slotBead(label string, parent GNX, index int, gnx GNX, removed bool) Bead {
	add := func() error {
		return u.o.InsertChild(parent, index, gnx)
	}

	remove := func() error {
		if got, ok := u.o.slotAt(parent, index); !ok || got != gnx {
			return fmt.Errorf("%w: slot %d of %q", ErrStaleBead, index, parent)
		}

		u.o.unlink(parent, index)

		return nil
	}

	if removed {
		return Bead{Label: label, Holds: []GNX{gnx}, Undo: add, Redo: remove}
	}

	return Bead{Label: label, Holds: []GNX{gnx}, Undo: remove, Redo: add}
}

func (u *Undoer) moveSlot(from GNX, fromIndex int, to GNX, toIndex int, gnx GNX) error {
	if got, ok := u.o.slotAt(from, fromIndex); !ok || got != gnx {
		return fmt.Errorf("%w: slot %d of %q", ErrStaleBead, fromIndex, from)
	}

	n := u.o.nodes[gnx]
	u.o.unlink(from, fromIndex)

	siblings, err := u.o.slotsOf(to)
	if err != nil || toIndex > len(siblings) {
		u.o.link(from, fromIndex, n)

		return fmt.Errorf("%w: slot %d of %q", ErrStaleBead, toIndex, to)
	}

	u.o.link(to, toIndex, n)

	return nil
}
