package outline_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/internal/testutil"
	"github.com/calvinalkan/outline/pkg/outline"
)

func Test_NewGNX_Uses_Session_ID_Timestamp_And_Counter(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()

	if got, want := o.NewGNX(), outline.GNX("test.20240101000001.1"); got != want {
		t.Fatalf("gnx=%q, want %q", got, want)
	}

	if got, want := o.NewNode("x", "").GNX(), outline.GNX("test.20240101000001.2"); got != want {
		t.Fatalf("gnx=%q, want %q", got, want)
	}
}

func Test_NewGNX_Skips_Registered_Values(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	require.NoError(t, o.Register(outline.MakeNode("test.20240101000001.1", "taken", "")))

	if got := o.NewGNX(); got == "test.20240101000001.1" {
		t.Fatalf("NewGNX returned registered gnx %q", got)
	}
}

func Test_NewGenerator_Without_ID_Uses_Random_Session(t *testing.T) {
	t.Parallel()

	g := outline.NewGenerator("", testutil.NewClock().Now())

	if got := len(g.ID()); got != 8 {
		t.Fatalf("len(id)=%d, want 8 (id=%q)", got, g.ID())
	}

	if !outline.ValidGNX(string(g.Next())) {
		t.Fatal("generated gnx is not valid")
	}
}

func Test_Register_Rejects_Duplicate_And_Invalid_GNX(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	n := outline.MakeNode("a.1", "a", "")

	require.NoError(t, o.Register(n))
	require.NoError(t, o.Register(n), "registering the same record twice")

	err := o.Register(outline.MakeNode("a.1", "other", ""))
	require.ErrorIs(t, err, outline.ErrDuplicateGNX)

	for _, bad := range []string{"", "a b", "a:b", "a\nb"} {
		err := o.Register(outline.MakeNode(outline.GNX(bad), "x", ""))
		if !errors.Is(err, outline.ErrInvalidGNX) {
			t.Errorf("Register(%q) err=%v, want ErrInvalidGNX", bad, err)
		}
	}
}

func Test_InsertChild_Sets_Clone_Flag_On_Second_Slot(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, `
root #r
  a #a
  b #b
`)

	a := testutil.MustLookup(t, o, "a")
	if a.IsCloned() {
		t.Fatal("a is cloned before second slot")
	}

	require.NoError(t, o.InsertChild("b", 0, "a"))

	if !a.IsCloned() {
		t.Fatal("a is not cloned after second slot")
	}

	if diff := cmp.Diff([]outline.GNX{"r", "b"}, a.Parents()); diff != "" {
		t.Fatalf("parents mismatch (-want +got):\n%s", diff)
	}

	testutil.RequireClean(t, o)

	// Both positions resolve to the same record.
	first, second := root.Child(0), root.Child(1).Child(0)
	if first.Node() != second.Node() {
		t.Fatal("clone positions resolve to different records")
	}

	first.Node().Body = "shared\n"
	if got := second.Body(); got != "shared\n" {
		t.Fatalf("clone body=%q, want shared body", got)
	}
}

func Test_RemoveChild_Clears_Clone_Flag(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, `
root #r
  a #a
  a #a
`)

	a := testutil.MustLookup(t, o, "a")
	require.True(t, a.IsCloned())

	gnx, err := o.RemoveChild("r", 1)
	require.NoError(t, err)
	require.Equal(t, outline.GNX("a"), gnx)
	require.False(t, a.IsCloned())
	testutil.RequireClean(t, o)
}

func Test_InsertChild_Rejects_Cycle(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, `
root #r
  a #a
    b #b
`)

	for _, tt := range []struct {
		parent, child outline.GNX
	}{
		{"b", "a"},
		{"b", "r"},
		{"a", "a"},
	} {
		err := o.InsertChild(tt.parent, 0, tt.child)
		if !errors.Is(err, outline.ErrCycle) {
			t.Errorf("InsertChild(%s, %s) err=%v, want ErrCycle", tt.parent, tt.child, err)
		}
	}

	testutil.RequireClean(t, o)
}

func Test_InsertChild_Rejects_Bad_Index_And_Unknown_GNX(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, "root #r\n  a #a\n")
	o.NewNode("loose", "")

	require.ErrorIs(t, o.InsertChild("r", 5, "a"), outline.ErrIndexOutOfRange)
	require.ErrorIs(t, o.InsertChild("r", 0, "missing"), outline.ErrUnknownGNX)
	require.ErrorIs(t, o.InsertChild("missing", 0, "a"), outline.ErrUnknownGNX)

	_, err := o.RemoveChild("r", 1)
	require.ErrorIs(t, err, outline.ErrIndexOutOfRange)
}

func Test_Delete_Detaches_Unreachable_Subtree_And_Reinsert_Restores_It(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, `
root #r
  a #a
    c #c
  b #b
    c #c
`)

	c := testutil.MustLookup(t, o, "c")
	require.True(t, c.IsCloned())

	require.NoError(t, o.Delete(root.Child(0)))

	// a is unreachable: c keeps only b as parent and is no longer a clone.
	require.Equal(t, []outline.GNX{"b"}, c.Parents())
	require.False(t, c.IsCloned())
	require.Equal(t, []outline.GNX{"c"}, testutil.MustLookup(t, o, "a").Children())
	testutil.RequireClean(t, o)

	require.NoError(t, o.InsertChild("r", 0, "a"))
	require.True(t, c.IsCloned())
	testutil.RequireClean(t, o)
}

func Test_Collect_Keeps_Reachable_And_Held_Records(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, `
root #r
  a #a
    a1 #a1
  b #b
    b1 #b1
`)

	require.NoError(t, o.Delete(root.Child(1)))
	require.NoError(t, o.Delete(root.Child(0)))

	o.Retain("a")

	removed := o.Collect()
	if diff := cmp.Diff([]outline.GNX{"b", "b1"}, removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}

	for _, gnx := range []outline.GNX{"r", "a", "a1"} {
		if _, ok := o.Lookup(gnx); !ok {
			t.Errorf("%s was collected", gnx)
		}
	}

	o.Release("a")
	require.Equal(t, []outline.GNX{"a", "a1"}, o.Collect())
	require.Equal(t, 1, o.Len())
}

func Test_Rename_Rewrites_Every_Handle(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, `
root #r
  a #a
    c #c
  b #b
    a #a
`)
	o.Retain("a")

	require.NoError(t, o.Rename("a", "z"))

	_, ok := o.Lookup("a")
	require.False(t, ok)

	z := testutil.MustLookup(t, o, "z")
	require.Equal(t, outline.GNX("z"), z.GNX())
	require.Equal(t, []outline.GNX{"z"}, testutil.MustLookup(t, o, "c").Parents())
	require.Equal(t, []outline.GNX{"z", "b"}, testutil.MustLookup(t, o, "r").Children())
	require.Equal(t, 1, o.Holds("z"))
	testutil.RequireClean(t, o)

	require.ErrorIs(t, o.Rename("z", "b"), outline.ErrDuplicateGNX)
	require.ErrorIs(t, o.Rename("missing", "y"), outline.ErrUnknownGNX)
}

func Test_Move_Relinks_And_Rejects_Moving_Into_Own_Subtree(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, `
root #r
  a #a
    a1 #a1
  b #b
`)

	require.ErrorIs(t, o.Move(root.Child(0), "a1", 0), outline.ErrCycle)
	require.NoError(t, o.Move(root.Child(0), "b", 0))

	want := "root #r\n  b #b\n    a #a\n      a1 #a1\n"
	if diff := cmp.Diff(want, testutil.Sketch(root)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	testutil.RequireClean(t, o)
}

func Test_ReplaceChildren_Keeps_Links_Symmetric(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, `
root #r
  a #a
  b #b
`)
	c := o.NewNode("c", "")

	require.NoError(t, o.ReplaceChildren("r", []outline.GNX{"b", c.GNX(), "b"}))
	require.True(t, testutil.MustLookup(t, o, "b").IsCloned())
	require.Empty(t, testutil.MustLookup(t, o, "a").Parents())
	testutil.RequireClean(t, o)
}

func Test_State_And_Restore_Round_Trip(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	testutil.Tree(t, o, "root #r\n  a #a\n")
	testutil.SetBody(t, o, "r", "body\n")

	saved, ok := o.State("r")
	require.True(t, ok)

	n := testutil.MustLookup(t, o, "r")
	n.Body = "changed"
	n.Headline = "changed"
	require.NoError(t, o.ReplaceChildren("r", nil))

	require.NoError(t, o.Restore("r", saved))
	require.Equal(t, "body\n", n.Body)
	require.Equal(t, "root", n.Headline)
	require.Equal(t, []outline.GNX{"a"}, n.Children())
	testutil.RequireClean(t, o)
}

func Test_Sketch_Expands_Clones(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, `
root #r
  a #a
    b #b
  c #c
    a #a
`)

	want := strings.TrimLeft(`
root #r
  a #a *
    b #b
  c #c
    a #a *
      b #b
`, "\n")

	if diff := cmp.Diff(want, testutil.Sketch(root)); diff != "" {
		t.Fatalf("sketch mismatch (-want +got):\n%s", diff)
	}
}
