package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/internal/index"
)

// IndexCmd returns the index command.
func IndexCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("index", flag.ContinueOnError),
		Usage: "index [dir]",
		Short: "Rebuild the node index",
		Long: `Scan dir (default: the working directory) for external files and rebuild
the index used by find. Files whose extension is not configured are ignored,
files that fail to read are reported as warnings.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[1:], " "))
			}

			root := a.cfg.EffectiveCwd
			if len(args) == 1 {
				root = a.path(args[0])
			}

			ix, err := index.Open(ctx, a.fs, a.cfg.IndexDirAbs, a.logger)
			if err != nil {
				return err
			}

			defer func() { _ = ix.Close() }()

			res, err := ix.Rebuild(ctx, root, index.RebuildOptions{
				Include:   a.cfg.Indexed,
				SessionID: a.cfg.ID,
			})
			if err != nil {
				return err
			}

			for _, issue := range res.Issues {
				io.Warn("%s", issue.String())
			}

			io.Printf("indexed %d files, %d nodes (%d skipped)\n", res.Files, res.Nodes, res.Skipped)

			return nil
		},
	}
}

// FindCmd returns the find command.
func FindCmd(a *app) *Command {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	limit := fs.IntP("limit", "n", 0, "Print at most `n` matches")

	return &Command{
		Flags:    fs,
		Usage:    "find <query> [flags]",
		Short:    "Look up nodes in the index",
		Examples: []string{"find --limit 5 parser", "--index-dir /tmp/idx find ekr.2021"},
		Long: `Print indexed nodes whose gnx starts with query or whose headline contains
it, ignoring case. One match per line: file, gnx, headline. Run "outline
index" first.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			switch {
			case len(args) == 0:
				return ErrQueryRequired
			case len(args) > 1:
				return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[1:], " "))
			}

			ix, err := index.Open(ctx, a.fs, a.cfg.IndexDirAbs, a.logger)
			if err != nil {
				return err
			}

			defer func() { _ = ix.Close() }()

			hits, err := ix.Find(ctx, args[0], *limit)
			if err != nil {
				return err
			}

			if len(hits) == 0 {
				return fmt.Errorf("%w: %q", ErrNoMatches, args[0])
			}

			for _, h := range hits {
				io.Printf("%s\t%s\t%s\n", h.File, h.GNX, h.Headline)
			}

			return nil
		},
	}
}
