// Package outline is the in-memory model of an outline document: a forest of
// nodes, each with a headline and a body, where one node record may appear
// at several tree positions (a clone).
//
// # Identity
//
// Every node is identified by a global node index (GNX). The [Outline] is an
// arena keyed by GNX. Parent and child relations are stored as GNX handles
// resolved through the arena, never as pointers, so two positions that name
// the same GNX always resolve to the same [*Node]:
//
//	o := outline.New(outline.NewGenerator("ekr", now))
//	a := o.NewNode("a", "")
//	b := o.NewNode("b", "")
//	_ = o.AddRoot(a.GNX())
//	_ = o.InsertChild(a.GNX(), 0, b.GNX())
//	_ = o.InsertChild(a.GNX(), 1, b.GNX()) // b is now cloned
//
// A node's parent list is a multiset with one entry per child slot that
// references it. A node occupying two or more slots (child slots plus
// top-level slots) carries the cloned bit.
//
// Unlinking the last slot of a node leaves the record in the arena, detached
// from its children's parent lists, until [Outline.Collect] reclaims it.
// Records referenced by undo history or a clipboard are protected with
// [Outline.Retain].
//
// # Positions
//
// A [Position] is a node plus the chain of (parent, child index) frames that
// leads to it from a top-level node. Positions are values; any structural
// edit may invalidate them. [Position.Valid] re-verifies the chain.
//
// # Checking
//
// [Check] verifies the link invariants (parent symmetry, arena keys, clone
// bits) over every reachable node and reports violations without repairing
// anything.
//
// An Outline is not safe for concurrent use. Callers serialize access.
package outline
