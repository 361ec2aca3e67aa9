package atfile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/internal/testutil"
	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/outline"
)

// scenario is an outline that every writer and reader test can build.
type scenario struct {
	name   string
	sketch string
	bodies map[outline.GNX]string
	opts   atfile.WriteOptions
}

var scenarios = []scenario{
	{
		name:   "others",
		sketch: "@file x.py #r\n  a #a\n  b #b\n",
		bodies: map[outline.GNX]string{
			"r": "@language python\nimport os\n@others\n",
			"a": "def a():\n    pass\n",
			"b": "def b():\n    return 1\n",
		},
	},
	{
		name:   "others_indented",
		sketch: "A #r\n  f #m\n",
		bodies: map[outline.GNX]string{
			"r": "class A:\n    @others\n",
			"m": "def f(self):\n    pass\n",
		},
	},
	{
		name:   "sections",
		sketch: "root #r\n  << imports >> #s\n  main #m\n",
		bodies: map[outline.GNX]string{
			"r": "<< imports >>\n@others\n",
			"s": "import os\n",
			"m": "main()\n",
		},
	},
	{
		name:   "doc_line",
		sketch: "root #r\n",
		bodies: map[outline.GNX]string{
			"r": "@doc\nline one\n@c\nx = 1\n",
		},
	},
	{
		name:   "doc_block",
		sketch: "root #r\n",
		bodies: map[outline.GNX]string{
			"r": "@language css\n@ doc text\nmore\n@c\np { color: red; }\n",
		},
	},
	{
		name:   "verbatim",
		sketch: "root #r\n",
		bodies: map[outline.GNX]string{
			"r": "#@ not a sentinel\nx\n",
		},
	},
	{
		name:   "afterref",
		sketch: "root #r\n  << val >> #v\n",
		bodies: map[outline.GNX]string{
			"r": "<< val >> + 1\n",
			"v": "42",
		},
	},
	{
		name:   "first_last",
		sketch: "root #r\n",
		bodies: map[outline.GNX]string{
			"r": "@first #!/usr/bin/env python\n@first # -*- coding: utf-8 -*-\nprint(1)\n@last # end\n",
		},
	},
	{
		name:   "clones",
		sketch: "root #r\n  a #a\n  a #a\n",
		bodies: map[outline.GNX]string{
			"r": "@others\n",
			"a": "x\n",
		},
	},
	{
		name:   "comment_switch",
		sketch: "root #r\n  a #a\n  b #b\n",
		bodies: map[outline.GNX]string{
			"r": "@language python\n@others\n",
			"a": "@comment //\nint x;\n",
			"b": "y\n",
		},
	},
	{
		name:   "delims_switch",
		sketch: "root #r\n  a #a\n  b #b\n",
		bodies: map[outline.GNX]string{
			"r": "@others\n",
			"a": "@delims /* */\nint x;\n",
			"b": "y\n",
		},
	},
	{
		name:   "section_delims",
		sketch: "root #r\n  <[ part ]> #p\n",
		bodies: map[outline.GNX]string{
			"r": "@section-delims <[ ]>\n<[ part ]>\n",
			"p": "x\n",
		},
	},
	{
		name:   "nested_levels",
		sketch: "root #r\n  a #a\n    b #b\n      c #c\n  d #d\n",
		bodies: map[outline.GNX]string{
			"r": "@others\n",
			"a": "a\n",
			"b": "b\n",
			"c": "c",
			"d": "d\n",
		},
	},
	{
		name:   "at_all",
		sketch: "@file test.py #r\n  child #c\n    inner #i\n",
		bodies: map[outline.GNX]string{
			"r": "@all\n",
			"c": "def spam():\n    pass\n    \n@ A single-line doc part.\n",
			"i": "@others\n<< undefined >>\n#@+node lookalike\n",
		},
	},
	{
		name:   "at_all_after_doc",
		sketch: "@file test.py #r\n",
		bodies: map[outline.GNX]string{
			"r": "@doc\ndoc line 1\n@all\n",
		},
	},
	{
		name:   "cweb",
		sketch: "root #r\n  a@b #a\n",
		bodies: map[outline.GNX]string{
			"r": "@language cweb\n@others\n",
			"a": "x @ y\n",
		},
	},
}

func (s scenario) build(t *testing.T) (*outline.Outline, outline.Position) {
	t.Helper()

	return newTree(t, s.sketch, s.bodies)
}

func newTree(t *testing.T, sketch string, bodies map[outline.GNX]string) (*outline.Outline, outline.Position) {
	t.Helper()

	o := testutil.NewOutline()
	root := testutil.Tree(t, o, sketch)

	for gnx, body := range bodies {
		testutil.SetBody(t, o, gnx, body)
	}

	return o, root
}

func mustWrite(t *testing.T, o *outline.Outline, root outline.Position, opts atfile.WriteOptions) atfile.WriteResult {
	t.Helper()

	res, err := atfile.Write(o, root, opts)
	require.NoError(t, err)

	return res
}

// readFresh reads text into a new outline whose only node has no headline.
func readFresh(t *testing.T, text string) (*outline.Outline, atfile.ReadResult) {
	t.Helper()

	o := testutil.NewOutline()

	n := o.NewNode("", "")
	require.NoError(t, o.AddRoot(n.GNX()))

	res, err := atfile.Read(o, o.RootAt(0), text, atfile.ReadOptions{Path: "test"})
	require.NoError(t, err)

	testutil.RequireClean(t, o)

	return o, res
}

func requireSameTree(t *testing.T, want, got outline.Position) {
	t.Helper()

	if diff := cmp.Diff(testutil.Flatten(want), testutil.Flatten(got)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func warningMessages(ws []atfile.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Msg)
	}

	return out
}
