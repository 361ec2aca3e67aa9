package outline

import (
	"fmt"
	"slices"
)

// ViolationKind classifies a failed link invariant.
type ViolationKind int

const (
	// ParentSymmetry: the parent multiset of a node does not match the child
	// slots that reference it.
	ParentSymmetry ViolationKind = iota + 1
	// RegistryDrift: a handle does not resolve, or a record is registered
	// under a key other than its own identity.
	RegistryDrift
	// CloneFlag: the cloned bit or the slot count is inconsistent.
	CloneFlag
)

func (k ViolationKind) String() string {
	switch k {
	case ParentSymmetry:
		return "parent-symmetry"
	case RegistryDrift:
		return "registry-drift"
	case CloneFlag:
		return "clone-flag"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(k))
	}
}

// Violation describes one broken invariant.
type Violation struct {
	GNX      GNX
	Headline string
	Kind     ViolationKind
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s %q: %s", v.Kind, v.GNX, v.Headline, v.Detail)
}

// Check verifies the link invariants of every node reachable from a
// top-level slot. It never modifies o.
func Check(o *Outline) []Violation {
	var out []Violation

	report := func(n *Node, kind ViolationKind, format string, args ...any) {
		v := Violation{Kind: kind, Detail: fmt.Sprintf(format, args...)}
		if n != nil {
			v.GNX = n.gnx
			v.Headline = n.Headline
		}

		out = append(out, v)
	}

	rootSlots := make(map[GNX]int)
	for _, r := range o.roots {
		rootSlots[r]++
	}

	seen := make(map[GNX]bool)
	stack := slices.Clone(o.roots)
	slices.Reverse(stack)

	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[key] {
			continue
		}

		seen[key] = true

		n, ok := o.nodes[key]
		if !ok {
			report(nil, RegistryDrift, "handle %s does not resolve to a registered record", key)

			continue
		}

		if n.gnx != key {
			report(n, RegistryDrift, "registered under %s", key)
		}

		// Every child slot must be matched by a parent entry on the child.
		for _, c := range uniq(n.children) {
			child, ok := o.nodes[c]
			if !ok {
				report(n, RegistryDrift, "child handle %s does not resolve", c)

				continue
			}

			slots, refs := count(n.children, c), count(child.parents, key)
			if slots != refs {
				report(child, ParentSymmetry, "parent %s has %d slots but %d parent references", key, slots, refs)
			}
		}

		// Every parent entry must be matched by a child slot on the parent.
		for _, p := range uniq(n.parents) {
			parent, ok := o.nodes[p]
			if !ok {
				report(n, RegistryDrift, "parent handle %s does not resolve", p)

				continue
			}

			if count(parent.children, key) == 0 {
				report(n, ParentSymmetry, "parent %s has no slot for it", p)
			}
		}

		slots := len(n.parents) + rootSlots[key]

		switch {
		case n.cloned != (slots >= 2):
			report(n, CloneFlag, "cloned=%t with %d slots", n.cloned, slots)
		case slots < 2 && rootSlots[key] == 1 && len(n.parents) != 0:
			report(n, CloneFlag, "top-level node has %d parent references", len(n.parents))
		case slots < 2 && rootSlots[key] == 0 && len(n.parents) != 1:
			report(n, CloneFlag, "node has %d parent references", len(n.parents))
		}

		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}

	return out
}

func count(list []GNX, gnx GNX) int {
	n := 0

	for _, g := range list {
		if g == gnx {
			n++
		}
	}

	return n
}

func uniq(list []GNX) []GNX {
	out := slices.Clone(list)
	slices.Sort(out)

	return slices.Compact(out)
}
