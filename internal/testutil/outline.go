package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/calvinalkan/outline/pkg/outline"
)

// Tree adds a new top-level subtree to o from an indented sketch and returns
// the position of its first top-level node.
//
// Each non-blank line is a headline indented by two spaces per level. A
// trailing " #<gnx>" fixes the node's identity; repeating an identity makes
// the later occurrence a clone of the first:
//
//	root #r
//	  a #a
//	    b #b
//	  b #b
func Tree(t testing.TB, o *outline.Outline, sketch string) outline.Position {
	t.Helper()

	first := len(o.Roots())

	var stack []outline.GNX

	for _, line := range strings.Split(sketch, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		trimmed := strings.TrimLeft(line, " ")
		level := (len(line) - len(trimmed)) / 2

		headline, id := trimmed, ""
		if i := strings.LastIndex(trimmed, " #"); i >= 0 {
			headline, id = trimmed[:i], trimmed[i+2:]
		}

		gnx := outline.GNX(id)
		if gnx == "" {
			gnx = o.NewGNX()
		}

		if _, ok := o.Lookup(gnx); !ok {
			if err := o.Register(outline.MakeNode(gnx, headline, "")); err != nil {
				t.Fatalf("register %q: %v", line, err)
			}
		}

		if level > len(stack) {
			t.Fatalf("sketch line %q skips a level", line)
		}

		stack = append(stack[:level], gnx)

		parent := outline.TopLevel
		index := len(o.Roots())

		if level > 0 {
			parent = stack[level-1]
			n, _ := o.Lookup(parent)
			index = n.NumChildren()
		}

		if err := o.InsertChild(parent, index, gnx); err != nil {
			t.Fatalf("link %q: %v", line, err)
		}
	}

	return o.RootAt(first)
}

// SetBody assigns body to the record registered under gnx.
func SetBody(t testing.TB, o *outline.Outline, gnx outline.GNX, body string) {
	t.Helper()

	MustLookup(t, o, gnx).Body = body
}

// MustLookup returns the record for gnx or fails the test.
func MustLookup(t testing.TB, o *outline.Outline, gnx outline.GNX) *outline.Node {
	t.Helper()

	n, ok := o.Lookup(gnx)
	if !ok {
		t.Fatalf("gnx %s not registered", gnx)
	}

	return n
}

// Entry is one position of a flattened subtree.
type Entry struct {
	Level    int
	GNX      outline.GNX
	Headline string
	Body     string
	Cloned   bool
}

// Flatten lists p and its descendants in outline order with levels
// relative to p. Two trees are structurally equal when their flattened
// forms are equal.
func Flatten(p outline.Position) []Entry {
	var out []Entry

	for _, q := range p.SelfAndSubtree() {
		n := q.Node()
		out = append(out, Entry{
			Level:    q.Level() - p.Level(),
			GNX:      n.GNX(),
			Headline: n.Headline,
			Body:     n.Body,
			Cloned:   n.IsCloned(),
		})
	}

	return out
}

// Sketch renders p's subtree in the format accepted by Tree, marking clones
// with a trailing "*".
func Sketch(p outline.Position) string {
	var b strings.Builder

	for _, e := range Flatten(p) {
		mark := ""
		if e.Cloned {
			mark = " *"
		}

		fmt.Fprintf(&b, "%s%s #%s%s\n", strings.Repeat("  ", e.Level), e.Headline, e.GNX, mark)
	}

	return b.String()
}

// RequireClean fails the test when outline.Check reports violations.
func RequireClean(t testing.TB, o *outline.Outline) {
	t.Helper()

	violations := outline.Check(o)
	if len(violations) == 0 {
		return
	}

	var b strings.Builder
	for _, v := range violations {
		b.WriteString("\n  " + v.String())
	}

	t.Fatalf("outline check found %d violations:%s", len(violations), b.String())
}
