package directive_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/pkg/directive"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		line string
		want directive.Kind
	}{
		{"@=", directive.NoDirective},
		{"@", directive.AtDoc},
		{"@ ", directive.AtDoc},
		{"@\t", directive.AtDoc},
		{"@\n", directive.AtDoc},
		{"@ a doc part\n", directive.AtDoc},
		{"@all", directive.All},
		{"    @all\n", directive.All},
		{"@allways", directive.NoDirective},
		{"@c", directive.Code},
		{"@code\n", directive.Code},
		{"@cc", directive.NoDirective},
		{"@doc", directive.Doc},
		{"@doc intro\n", directive.Doc},
		{"@encoding", directive.Misc},
		{"@encoding.setter", directive.NoDirective},
		{"@encoding(\"abc\")", directive.NoDirective},
		{"encoding = \"abc\"", directive.NoDirective},
		{"@end_raw", directive.Misc},
		{"@others", directive.Others},
		{"    @others\n", directive.Others},
		{"\t@others  # trailing", directive.Others},
		{"@otherside", directive.NoDirective},
		{"@raw", directive.Misc},
		{"@tabwidth -4", directive.Misc},
		{"@section-delims <!< >!>", directive.Misc},
		{"@language python\r\n", directive.Misc},
		{"@directive", directive.NoDirective},
		{"@@c", directive.NoDirective},
		{" @language python", directive.NoDirective},
		{"", directive.NoDirective},
	} {
		if got := directive.Classify(tt.line); got != tt.want {
			t.Errorf("Classify(%q)=%s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestClassifyLanguage(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		line     string
		language string
		want     directive.Kind
	}{
		{"@c\n", "cweb", directive.NoDirective},
		{"@code\n", "cweb", directive.NoDirective},
		{"@ limbo\n", "cweb", directive.NoDirective},
		{"@* starred section\n", "cweb", directive.NoDirective},
		{"@doc\n", "cweb", directive.Doc},
		{"@others\n", "cweb", directive.Others},
		{"@language cweb\n", "cweb", directive.Misc},
		{"@c\n", "c", directive.Code},
		{"@ doc\n", "python", directive.AtDoc},
	} {
		if got := directive.ClassifyLanguage(tt.line, tt.language); got != tt.want {
			t.Errorf("ClassifyLanguage(%q, %q)=%s, want %s", tt.line, tt.language, got, tt.want)
		}
	}
}

func TestWordAndArg(t *testing.T) {
	t.Parallel()

	word, rest := directive.Word("@language python\n")
	require.Equal(t, "language", word)
	require.Equal(t, " python\n", rest)

	require.Equal(t, "!!! 123", directive.Arg("@comment   !!! 123  \n"))
	require.Equal(t, "", directive.Arg("@others\n"))
}

func TestParseCommentDelims(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want directive.Delims
	}{
		{"#", directive.Delims{Line: "#"}},
		{"@comment !!!", directive.Delims{Line: "!!!"}},
		{"<!-- -->", directive.Delims{Start: "<!--", End: "-->"}},
		{"// /* */", directive.Delims{Line: "//", Start: "/*", End: "*/"}},
		{"REM_", directive.Delims{Line: "REM "}},
	} {
		got, err := directive.ParseCommentDelims(tt.in)
		require.NoError(t, err, tt.in)

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseCommentDelims(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}

	_, err := directive.ParseCommentDelims("@comment")
	require.ErrorIs(t, err, directive.ErrNoDelims)

	_, err = directive.ParseCommentDelims("a b c d")
	require.ErrorIs(t, err, directive.ErrTooManyDelims)

	_, err = directive.ParseCommentDelims("=pod__ =cut")
	require.ErrorIs(t, err, directive.ErrNewlineInDelim)
}

func TestParseDelims(t *testing.T) {
	t.Parallel()

	start, end, err := directive.ParseDelims("@delims <! !>")
	require.NoError(t, err)
	require.Equal(t, "<!", start)
	require.Equal(t, "!>", end)

	start, end, err = directive.ParseDelims(" //\n")
	require.NoError(t, err)
	require.Equal(t, "//", start)
	require.Empty(t, end)

	_, _, err = directive.ParseDelims("@delims")
	require.ErrorIs(t, err, directive.ErrNoDelims)
}

func TestDelimsSentinel(t *testing.T) {
	t.Parallel()

	d, ok := directive.LanguageDelims("go")
	require.True(t, ok)

	start, end := d.Sentinel()
	require.Equal(t, "//", start)
	require.Empty(t, end)

	d, ok = directive.LanguageDelims("HTML")
	require.True(t, ok)

	start, end = d.Sentinel()
	require.Equal(t, "<!--", start)
	require.Equal(t, "-->", end)

	_, ok = directive.LanguageDelims("klingon")
	require.False(t, ok)
}

func TestLanguageForPath(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]string{
		"a/b/test.py":    "python",
		"main.go":        "go",
		"INDEX.HTML":     "html",
		"notes.txt":      "plain",
		"prog.w":         "cweb",
		"build/Makefile": "makefile",
	} {
		got, ok := directive.LanguageForPath(path)
		if !ok || got != want {
			t.Errorf("LanguageForPath(%q)=%q,%t want %q", path, got, ok, want)
		}
	}

	_, ok := directive.LanguageForPath("README")
	require.False(t, ok)
}
