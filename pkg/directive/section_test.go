package directive_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/outline/pkg/directive"
)

func TestFindRef(t *testing.T) {
	t.Parallel()

	sd := directive.DefaultSectionDelims()

	for _, tt := range []struct {
		line string
		want directive.Ref
		ok   bool
	}{
		{line: "<< test >>\n", want: directive.Ref{Name: "<< test >>", Tail: "\n"}, ok: true},
		{line: "    << a b >> # tail\n", want: directive.Ref{Indent: "    ", Name: "<< a b >>", Tail: " # tail\n"}, ok: true},
		{line: "\t<<x>>", want: directive.Ref{Indent: "\t", Name: "<<x>>"}, ok: true},
		{line: "x = << test >>\n"},
		{line: "<< >>\n"},
		{line: "<< open\n"},
		{line: "plain\n"},
	} {
		got, ok := sd.FindRef(tt.line)
		if ok != tt.ok {
			t.Errorf("FindRef(%q) ok=%t, want %t", tt.line, ok, tt.ok)

			continue
		}

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("FindRef(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestCustomSectionDelims(t *testing.T) {
	t.Parallel()

	sd, err := directive.ParseSectionDelims("@section-delims <!< >!>")
	require.NoError(t, err)
	require.Equal(t, directive.SectionDelims{Open: "<!<", Close: ">!>"}, sd)

	ref, ok := sd.FindRef("<!< test >!>\n")
	require.True(t, ok)
	require.Equal(t, "<!< test >!>", ref.Name)

	_, ok = sd.FindRef("<< test >>\n")
	require.False(t, ok)

	require.True(t, sd.IsSectionName("<!< test >!>"))
	require.False(t, sd.IsSectionName("<< test >>"))

	_, err = directive.ParseSectionDelims("@section-delims <<")
	require.ErrorIs(t, err, directive.ErrBadSectionDelims)
}

func TestSectionMatches(t *testing.T) {
	t.Parallel()

	sd := directive.DefaultSectionDelims()

	require.True(t, sd.Matches("<< Test >>", "<<test>>"))
	require.True(t, sd.Matches("<< test >> (declarations)", "<< test >>"))
	require.False(t, sd.Matches("<< other >>", "<< test >>"))
	require.False(t, sd.Matches("<< test >>", ""))
	require.True(t, sd.IsSectionName("  << x >>  "))
	require.False(t, sd.IsSectionName("x << y >>"))
}
