package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/pkg/outline"
)

// ReadCmd returns the read command.
func ReadCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("read", flag.ContinueOnError),
		Usage: "read <file>",
		Short: "Read an external file and check the outline",
		Long: `Read an external file into a fresh outline, run the invariant checker
and print a summary. Read warnings and invariant violations are reported as
warnings.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execRead(ctx, io, a, args)
		},
	}
}

func execRead(ctx context.Context, io *IO, a *app, args []string) error {
	path, err := fileArg(args)
	if err != nil {
		return err
	}

	o, res, err := a.load(ctx, path)
	if err != nil {
		return err
	}

	warnAll(io, res.Warnings)

	for _, v := range outline.Check(o) {
		io.Warn("invariant: %s", v.String())
	}

	occurrences := res.Root.SelfAndSubtree()
	records := map[outline.GNX]bool{}
	clones := 0

	for _, p := range occurrences {
		if !records[p.GNX()] && p.IsCloned() {
			clones++
		}

		records[p.GNX()] = true
	}

	io.Printf("root: %s\n", res.Root.GNX())
	io.Printf("headline: %s\n", res.Root.Headline())
	io.Printf("nodes: %d\n", len(records))
	io.Printf("occurrences: %d\n", len(occurrences))
	io.Printf("clones: %d\n", clones)
	io.Printf("delims: %s\n", res.Delims.String())
	io.Printf("encoding: %s\n", res.Encoding)

	return nil
}
