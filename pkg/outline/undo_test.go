package outline_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/internal/testutil"
	"github.com/calvinalkan/outline/pkg/outline"
)

const undoSketch = `
root #r
  a #a
    a1 #a1
  b #b
`

func Test_Undoer_Reverts_And_Reapplies_Each_Edit(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name  string
		apply func(t *testing.T, u *outline.Undoer, root outline.Position)
		after string
	}{
		{
			name: "clone",
			apply: func(t *testing.T, u *outline.Undoer, root outline.Position) {
				_, err := u.Clone(root.FirstChild())
				require.NoError(t, err)
			},
			after: "root #r\n  a #a *\n    a1 #a1\n  a #a *\n    a1 #a1\n  b #b\n",
		},
		{
			name: "delete",
			apply: func(t *testing.T, u *outline.Undoer, root outline.Position) {
				require.NoError(t, u.Delete(root.FirstChild()))
			},
			after: "root #r\n  b #b\n",
		},
		{
			name: "move",
			apply: func(t *testing.T, u *outline.Undoer, root outline.Position) {
				require.NoError(t, u.Move(root.FirstChild(), "b", 0))
			},
			after: "root #r\n  b #b\n    a #a\n      a1 #a1\n",
		},
		{
			name: "insert",
			apply: func(t *testing.T, u *outline.Undoer, _ outline.Position) {
				_, err := u.InsertNode("b", 0, "new", "")
				require.NoError(t, err)
			},
			after: "root #r\n  a #a\n    a1 #a1\n  b #b\n    new #test.20240101000001.1\n",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := testutil.NewOutline()
			root := testutil.Tree(t, o, undoSketch)
			before := testutil.Sketch(root)

			u := outline.NewUndoer(o)
			tt.apply(t, u, root)
			testutil.RequireClean(t, o)

			if diff := cmp.Diff(tt.after, testutil.Sketch(root)); diff != "" {
				t.Fatalf("after apply (-want +got):\n%s", diff)
			}

			require.True(t, u.CanUndo())
			require.NoError(t, u.Undo())
			testutil.RequireClean(t, o)

			if diff := cmp.Diff(before, testutil.Sketch(root)); diff != "" {
				t.Fatalf("after undo (-want +got):\n%s", diff)
			}

			require.True(t, u.CanRedo())
			require.NoError(t, u.Redo())
			testutil.RequireClean(t, o)

			if diff := cmp.Diff(tt.after, testutil.Sketch(root)); diff != "" {
				t.Fatalf("after redo (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Undoer_Holds_Protect_Deleted_Records_From_Collect(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, undoSketch)
	u := outline.NewUndoer(o)

	require.NoError(t, u.Delete(root.FirstChild()))
	require.Empty(t, o.Collect())

	require.NoError(t, u.Undo())
	testutil.RequireClean(t, o)
	require.Equal(t, "a", root.FirstChild().Headline())

	// A new edit truncates the redo tail and releases its holds.
	require.NoError(t, u.Delete(root.Child(1)))
	require.NoError(t, u.Undo())
	_, err := u.InsertNode("r", 0, "x", "")
	require.NoError(t, err)
	require.False(t, u.CanRedo())
	require.Equal(t, 0, o.Holds("a"))

	u.Clear()
	require.False(t, u.CanUndo())
	require.Empty(t, o.Collect())
}

func Test_Undoer_Reports_Empty_History(t *testing.T) {
	t.Parallel()

	u := outline.NewUndoer(testutil.NewOutline())

	require.ErrorIs(t, u.Undo(), outline.ErrNothingToUndo)
	require.ErrorIs(t, u.Redo(), outline.ErrNothingToRedo)
	require.Empty(t, u.UndoLabel())
	require.Empty(t, u.RedoLabel())
}

func Test_Undo_Fails_On_Stale_Bead(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, undoSketch)
	u := outline.NewUndoer(o)

	_, err := u.Clone(root.FirstChild())
	require.NoError(t, err)
	require.Equal(t, "clone node", u.UndoLabel())

	// Edit behind the history's back.
	_, err = o.RemoveChild("r", 1)
	require.NoError(t, err)

	require.ErrorIs(t, u.Undo(), outline.ErrStaleBead)
	require.True(t, u.CanUndo())
}
