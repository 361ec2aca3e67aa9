package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/pkg/outline"
)

// TreeCmd returns the tree command.
func TreeCmd(a *app) *Command {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	noGNX := fs.Bool("no-gnx", false, "Do not print gnxs")

	return &Command{
		Flags:    fs,
		Usage:    "tree <file> [flags]",
		Short:    "Print the outline of an external file",
		Examples: []string{"tree src/app.py", "tree --no-gnx src/app.py"},
		Long: `Print the outline stored in an external file, one headline per line.
"+" marks nodes with children, "*" marks clones. Lines are cut at the
configured page width.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			path, err := fileArg(args)
			if err != nil {
				return err
			}

			_, res, err := a.load(ctx, path)
			if err != nil {
				return err
			}

			warnAll(io, res.Warnings)

			for _, line := range treeLines(res.Root, indentWidth(a.cfg.TabWidth), a.cfg.PageWidth, !*noGNX) {
				io.Println(line)
			}

			return nil
		},
	}
}

// indentWidth turns a tab width into spaces per level. Negative tab widths
// mean "expand tabs", only the magnitude matters here.
func indentWidth(tabWidth int) int {
	if tabWidth < 0 {
		tabWidth = -tabWidth
	}

	return max(tabWidth/2, 1)
}

func treeLines(root outline.Position, indent, width int, withGNX bool) []string {
	var lines []string

	base := root.Level()

	for _, p := range root.SelfAndSubtree() {
		mark := "-"
		if p.HasChildren() {
			mark = "+"
		}

		if p.IsCloned() {
			mark += "*"
		}

		line := fmt.Sprintf("%s%s %s", strings.Repeat(" ", indent*(p.Level()-base)), mark, p.Headline())
		if withGNX {
			line += " [" + string(p.GNX()) + "]"
		}

		lines = append(lines, truncate(line, width))
	}

	return lines
}

func truncate(s string, width int) string {
	if width <= 3 || utf8.RuneCountInString(s) <= width {
		return s
	}

	r := []rune(s)

	return string(r[:width-3]) + "..."
}
