package atfile_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/internal/testutil"
	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/outline"
)

func Test_Write_Matches_Golden_Files(t *testing.T) {
	t.Parallel()

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			t.Parallel()

			o, root := s.build(t)
			res := mustWrite(t, o, root, s.opts)

			if len(res.Warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warningMessages(res.Warnings))
			}

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, s.name, []byte(res.Text))
		})
	}
}

func Test_Write_Doc_Part_With_Line_Comments(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "@doc\nline one\n@c\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	if !strings.Contains(res.Text, "#@+doc\n# line one\n#@@c\n") {
		t.Fatalf("text=%q, want doc part sentinels", res.Text)
	}
}

func Test_Write_Blank_Doc_Line_Is_Bare_Comment_Delimiter(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "@\none\n\ntwo\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	if !strings.Contains(res.Text, "#@+at\n# one\n#\n# two\n") {
		t.Fatalf("text=%q", res.Text)
	}
}

func Test_Write_Adjacent_Doc_Parts(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "@ first\n@doc second\ntext\n@c\ncode\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	want := "#@+at first\n#@+doc second\n# text\n#@@c\ncode\n"
	if !strings.Contains(res.Text, want) {
		t.Fatalf("text=%q, want it to contain %q", res.Text, want)
	}
}

func Test_Write_Empty_Others_Writes_Only_Brackets(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "@others\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	want := "#@+leo-ver=5-thin\n#@+node:r: * root\n#@+others\n#@-others\n#@-leo\n"
	if res.Text != want {
		t.Fatalf("text=%q, want %q", res.Text, want)
	}
}

func Test_Write_Indented_All_Indents_Every_Descendant(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n  a #a\n    b #b\n", map[outline.GNX]string{
		"r": "class A:\n    @all\n",
		"a": "@others\nx = 1\n",
		"b": "y = 2\n",
	})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	want := "#@+leo-ver=5-thin\n" +
		"#@+node:r: * root\n" +
		"class A:\n" +
		"    #@+all\n" +
		"    #@+node:a: ** a\n" +
		"    @others\n" +
		"    x = 1\n" +
		"    #@+node:b: *3* b\n" +
		"    y = 2\n" +
		"    #@-all\n" +
		"#@-leo\n"
	require.Equal(t, want, res.Text)
	require.Empty(t, res.Warnings)
}

func Test_Write_Second_Expansion_In_Node_Is_Text(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n  a #a\n", map[outline.GNX]string{
		"r": "@all\n@others\n",
		"a": "x\n",
	})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	require.Contains(t, res.Text, "#@-all\n@others\n#@-leo\n")
	require.Equal(t, []string{"multiple @all in one node: @others after @all is written as text"}, warningMessages(res.Warnings))
}

func Test_Write_Uses_Path_Hint_For_Delimiters(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "package main\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{PathHint: "main.go"})

	if !strings.HasPrefix(res.Text, "//@+leo-ver=5-thin\n//@+node:r: * root\n") {
		t.Fatalf("text=%q, want // sentinels", res.Text)
	}

	if res.Language != "go" {
		t.Fatalf("language=%q, want go", res.Language)
	}
}

func Test_Write_Language_Directive_Of_Ancestor_Applies(t *testing.T) {
	t.Parallel()

	o, _ := newTree(t, "top #t\n  root #r\n", map[outline.GNX]string{
		"t": "@language lua\n",
		"r": "x = 1\n",
	})

	root := o.PositionAt(0, 0)
	res := mustWrite(t, o, root, atfile.WriteOptions{PathHint: "x.py"})

	if !strings.HasPrefix(res.Text, "--@+leo-ver=5-thin\n") {
		t.Fatalf("text=%q, want -- sentinels from the ancestor's @language", res.Text)
	}
}

func Test_Write_Non_UTF8_Encoding_Is_Named_In_Header(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n", map[outline.GNX]string{"r": "@encoding iso-8859-1\nx\n"})
	res := mustWrite(t, o, root, atfile.WriteOptions{})

	if !strings.HasPrefix(res.Text, "#@+leo-ver=5-thin-encoding=iso-8859-1,.\n") {
		t.Fatalf("text=%q", res.Text)
	}

	if res.Encoding != "iso-8859-1" {
		t.Fatalf("encoding=%q", res.Encoding)
	}
}

func Test_Write_Levels_Are_Relative_To_Root(t *testing.T) {
	t.Parallel()

	o, _ := newTree(t, "top #t\n  root #r\n    child #c\n", map[outline.GNX]string{
		"r": "@others\n",
		"c": "c\n",
	})

	res := mustWrite(t, o, o.PositionAt(0, 0), atfile.WriteOptions{})

	if !strings.Contains(res.Text, "#@+node:r: * root\n") || !strings.Contains(res.Text, "#@+node:c: ** child\n") {
		t.Fatalf("text=%q", res.Text)
	}
}

func Test_Write_Returns_Error_When_Child_Is_Not_Written(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n  lost #l\n", map[outline.GNX]string{"r": "no others here\n"})

	_, err := atfile.Write(o, root, atfile.WriteOptions{})
	if !errors.Is(err, atfile.ErrOrphanNode) {
		t.Fatalf("err=%v, want ErrOrphanNode", err)
	}
}

func Test_Write_Returns_Error_When_Section_Is_Not_A_Child(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n  a #a\n    << deep >> #d\n", map[outline.GNX]string{
		"r": "<< deep >>\n@others\n",
		"d": "x\n",
	})

	_, err := atfile.Write(o, root, atfile.WriteOptions{})
	require.ErrorIs(t, err, atfile.ErrOrphanNode)
}

func Test_Write_Returns_Error_When_Headline_Has_Newline(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "root #r\n  c #c\n", map[outline.GNX]string{"r": "@others\n"})
	testutil.MustLookup(t, o, "c").Headline = "two\nlines"

	_, err := atfile.Write(o, root, atfile.WriteOptions{})
	if !errors.Is(err, atfile.ErrInvalidHeadline) {
		t.Fatalf("err=%v, want ErrInvalidHeadline", err)
	}
}

func Test_Write_Returns_Error_When_First_Or_Last_Is_Misplaced(t *testing.T) {
	t.Parallel()

	cases := map[string]map[outline.GNX]string{
		"first in child":     {"r": "@others\n", "c": "@first x\n"},
		"last in child":      {"r": "@others\n", "c": "@last x\n"},
		"first after code":   {"r": "code\n@first x\n@others\n"},
		"last before code":   {"r": "@others\n@last x\ncode\n"},
		"first between last": {"r": "@others\n@last a\n@first b\n@last c\n"},
	}

	for name, bodies := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			o, root := newTree(t, "root #r\n  c #c\n", bodies)

			_, err := atfile.Write(o, root, atfile.WriteOptions{})
			if !errors.Is(err, atfile.ErrMisplacedDirective) {
				t.Fatalf("err=%v, want ErrMisplacedDirective", err)
			}
		})
	}
}

func Test_Write_Returns_Error_When_Root_Is_Not_In_Outline(t *testing.T) {
	t.Parallel()

	o := testutil.NewOutline()
	other := testutil.NewOutline()
	root := testutil.Tree(t, other, "root #r\n")

	_, err := atfile.Write(o, root, atfile.WriteOptions{})
	if !errors.Is(err, atfile.ErrInvalidRoot) {
		t.Fatalf("err=%v, want ErrInvalidRoot", err)
	}
}

func Test_Write_Warns_About_Content_Problems(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		sketch string
		bodies map[outline.GNX]string
		want   string
		text   string
	}{
		{
			name:   "undefined section",
			sketch: "root #r\n",
			bodies: map[outline.GNX]string{"r": "<< missing >>\n"},
			want:   "undefined section: << missing >>",
			text:   "#@+node:r: * root\n<< missing >>\n#@-leo\n",
		},
		{
			name:   "second others",
			sketch: "root #r\n  c #c\n",
			bodies: map[outline.GNX]string{"r": "@others\n@others\n"},
			want:   "multiple @others",
			text:   "#@-others\n@others\n#@-leo\n",
		},
		{
			name:   "repeated reference",
			sketch: "root #r\n  << s >> #s\n",
			bodies: map[outline.GNX]string{"r": "<< s >>\n<< s >>\n", "s": "s\n"},
			want:   "referenced more than once",
			text:   "#@-<< s >>\n<< s >>\n#@-leo\n",
		},
		{
			name:   "comment and delims",
			sketch: "root #r\n",
			bodies: map[outline.GNX]string{"r": "@comment //\n@delims #\n"},
			want:   "both @comment and @delims",
			text:   "//@delims #\n#@-leo\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			o, root := newTree(t, tc.sketch, tc.bodies)
			res := mustWrite(t, o, root, atfile.WriteOptions{})

			msgs := warningMessages(res.Warnings)
			if !slices.ContainsFunc(msgs, func(m string) bool { return strings.Contains(m, tc.want) }) {
				t.Fatalf("warnings=%q, want one containing %q", msgs, tc.want)
			}

			if !strings.Contains(res.Text, tc.text) {
				t.Fatalf("text=%q, want it to contain %q", res.Text, tc.text)
			}
		})
	}
}

func Test_Write_Runs_Checker_For_Language(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "@file a.go #r\n", map[outline.GNX]string{"r": "package main\n\nfunc {\n"})

	res := mustWrite(t, o, root, atfile.WriteOptions{PathHint: "a.go", Checkers: atfile.DefaultCheckers()})
	require.Len(t, res.Warnings, 1)

	if !strings.Contains(res.Warnings[0].Msg, "go syntax check failed") {
		t.Fatalf("warning=%q", res.Warnings[0].Msg)
	}

	testutil.SetBody(t, o, "r", "package main\n\nfunc main() {}\n")

	res = mustWrite(t, o, root, atfile.WriteOptions{PathHint: "a.go", Checkers: atfile.DefaultCheckers()})
	require.Empty(t, res.Warnings)
}

func Test_Write_Checker_Sees_Source_Without_Sentinels(t *testing.T) {
	t.Parallel()

	o, root := newTree(t, "@file a.json #r\n  item #i\n", map[outline.GNX]string{
		"r": "{\n@others\n}\n",
		"i": "  \"a\": 1\n",
	})

	res := mustWrite(t, o, root, atfile.WriteOptions{PathHint: "a.json", Checkers: atfile.DefaultCheckers()})
	require.Empty(t, res.Warnings)
}

func Test_Write_Without_Sentinels_Produces_Plain_Source(t *testing.T) {
	t.Parallel()

	s := scenarios[0]
	o, root := s.build(t)

	res := mustWrite(t, o, root, atfile.WriteOptions{NoSentinels: true})

	want := "import os\ndef a():\n    pass\ndef b():\n    return 1\n"
	if res.Text != want {
		t.Fatalf("text=%q, want %q", res.Text, want)
	}
}
