package directive_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/outline/pkg/directive"
)

func TestScan(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		bodies []string
		want   func(c *directive.Context)
	}{
		{
			name: "defaults",
			want: func(*directive.Context) {},
		},
		{
			name:   "language sets delimiters",
			bodies: []string{"@language html\n"},
			want: func(c *directive.Context) {
				c.Language = "html"
				c.Delims = directive.Delims{Start: "<!--", End: "-->"}
			},
		},
		{
			name:   "comment wins over language in one body",
			bodies: []string{"@comment !!!\n@language c\n"},
			want: func(c *directive.Context) {
				c.Language = "c"
				c.Delims = directive.Delims{Line: "!!!"}
			},
		},
		{
			name:   "first occurrence wins in a body",
			bodies: []string{"@tabwidth 8\n@tabwidth 2\n@pagewidth 80\n"},
			want: func(c *directive.Context) {
				c.TabWidth = 8
				c.PageWidth = 80
			},
		},
		{
			name:   "inner body overrides outer",
			bodies: []string{"@language go\n@encoding latin-1\n", "@language plain\n"},
			want: func(c *directive.Context) {
				c.Language = "plain"
				c.Encoding = "latin-1"
			},
		},
		{
			name:   "malformed arguments are ignored",
			bodies: []string{"@tabwidth x\n@pagewidth -1\n@comment\n@section-delims a\n"},
			want:   func(*directive.Context) {},
		},
		{
			name:   "section delims and unknown language",
			bodies: []string{"@section-delims <!< >!>\n@language klingon\n"},
			want: func(c *directive.Context) {
				c.Language = "klingon"
				c.SectionDelims = directive.SectionDelims{Open: "<!<", Close: ">!>"}
			},
		},
		{
			name:   "indented and look-alike lines are not directives",
			bodies: []string{" @language go\n@language.x go\n"},
			want:   func(*directive.Context) {},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := directive.Default()
			tt.want(&want)

			if diff := cmp.Diff(want, directive.Scan(tt.bodies...)); diff != "" {
				t.Fatalf("context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()

	c := directive.ForPath("main.go", "")
	if c.Language != "go" || c.Delims.Line != "//" {
		t.Fatalf("ForPath(main.go)=%+v", c)
	}

	c = directive.ForPath("README", "md")
	if c.Language != "md" || c.Delims.Start != "<!--" {
		t.Fatalf("ForPath(README, md)=%+v", c)
	}

	c = directive.ForPath("README", "")
	if c.Language != directive.DefaultLanguage {
		t.Fatalf("ForPath(README)=%+v", c)
	}
}
