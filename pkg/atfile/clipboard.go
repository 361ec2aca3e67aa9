package atfile

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/calvinalkan/outline/pkg/directive"
	"github.com/calvinalkan/outline/pkg/outline"
)

// PasteMode selects how Paste treats the gnxs in a snapshot.
type PasteMode int

const (
	// PasteNew gives every pasted node a fresh gnx. Clone links inside the
	// snapshot are kept among the new nodes.
	PasteNew PasteMode = iota

	// PasteRetainingClones keeps the gnxs of the snapshot. Nodes that still
	// exist in the outline become clones and take the snapshot's text.
	PasteRetainingClones
)

func (m PasteMode) String() string {
	switch m {
	case PasteNew:
		return "new"
	case PasteRetainingClones:
		return "retaining-clones"
	default:
		return fmt.Sprintf("PasteMode(%d)", int(m))
	}
}

var clipboardDelims = directive.Delims{Line: "#"}

// Copy returns a snapshot of the subtree at p. Every node gets its own node
// sentinel and bodies are copied line for line, so the snapshot is
// independent of @others and section references.
func Copy(o *outline.Outline, p outline.Position) (string, error) {
	res, err := Write(o, p, WriteOptions{Delims: clipboardDelims, Raw: true})
	if err != nil {
		return "", err
	}

	return res.Text, nil
}

// Cut copies the subtree at p and unlinks p. The unlink is recorded in u
// when u is not nil.
func Cut(o *outline.Outline, p outline.Position, u *outline.Undoer) (string, error) {
	blob, err := Copy(o, p)
	if err != nil {
		return "", err
	}

	if u != nil {
		err = u.Delete(p)
	} else {
		err = o.Delete(p)
	}

	if err != nil {
		return "", err
	}

	return blob, nil
}

// Paste links the subtree described by blob at index among the children of
// parent (which may be [outline.TopLevel]) and returns the gnx of its root.
// The operation is recorded in u when u is not nil.
func Paste(
	o *outline.Outline,
	blob string,
	parent outline.GNX,
	index int,
	mode PasteMode,
	u *outline.Undoer,
) (outline.GNX, []Warning, error) {
	pl, warnings, err := parse(blob, "", directive.DefaultSectionDelims(), true)
	if err != nil {
		return "", nil, err
	}

	rename := make(map[outline.GNX]outline.GNX, len(pl.nodes))

	for _, gnx := range slices.Sorted(maps.Keys(pl.nodes)) {
		if mode == PasteNew {
			// Reserve the identity so the next NewGNX cannot hand it out again.
			n := o.NewNode("", "")
			rename[gnx] = n.GNX()
		} else {
			rename[gnx] = gnx
		}
	}

	if _, ok := rename[parent]; ok && mode == PasteRetainingClones {
		return "", nil, fmt.Errorf("%w: cannot paste %s into itself", outline.ErrCycle, parent)
	}

	before := make(map[outline.GNX]outline.NodeState)
	after := make(map[outline.GNX]outline.NodeState, len(pl.nodes))

	for from, n := range pl.nodes {
		gnx := rename[from]

		if s, ok := o.State(gnx); ok && mode == PasteRetainingClones {
			before[gnx] = s
		} else if !ok {
			if err := o.Register(outline.MakeNode(gnx, "", "")); err != nil {
				return "", nil, err
			}
		}

		children := make([]outline.GNX, len(n.children))
		for i, c := range n.children {
			children[i] = rename[c]
		}

		after[gnx] = outline.NodeState{Headline: n.headline, Body: n.body(), Children: children}
	}

	root := rename[pl.root.gnx]

	apply := func() error {
		if err := o.RestoreAll(after); err != nil {
			return err
		}

		if err := o.InsertChild(parent, index, root); err != nil {
			return errors.Join(err, o.RestoreAll(before))
		}

		return nil
	}

	if err := apply(); err != nil {
		return "", nil, err
	}

	if u != nil {
		u.Do(outline.Bead{
			Label: "paste node",
			Holds: slices.Sorted(maps.Keys(after)),
			Undo: func() error {
				if got, ok := childAt(o, parent, index); !ok || got != root {
					return fmt.Errorf("%w: slot %d of %q", outline.ErrStaleBead, index, parent)
				}

				if _, err := o.RemoveChild(parent, index); err != nil {
					return err
				}

				return o.RestoreAll(before)
			},
			Redo: apply,
		})
	}

	return root, warnings, nil
}

func childAt(o *outline.Outline, parent outline.GNX, index int) (outline.GNX, bool) {
	var slots []outline.GNX

	if parent == outline.TopLevel {
		slots = o.Roots()
	} else {
		n, ok := o.Lookup(parent)
		if !ok {
			return "", false
		}

		slots = n.Children()
	}

	if index < 0 || index >= len(slots) {
		return "", false
	}

	return slots[index], true
}
