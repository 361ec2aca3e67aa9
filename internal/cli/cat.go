package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// CatCmd returns the cat command.
func CatCmd(a *app) *Command {
	return &Command{
		Flags:    flag.NewFlagSet("cat", flag.ContinueOnError),
		Usage:    "cat <file> <node>",
		Short:    "Print the body of a node",
		Examples: []string{`cat src/app.py "<< imports >>"`},
		Long: `Print the body of one node of an external file. The node is named by its
gnx, its exact headline, or a substring matching exactly one headline.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			switch {
			case len(args) == 0:
				return ErrFileRequired
			case len(args) == 1:
				return ErrNodeRequired
			case len(args) > 2:
				return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[2:], " "))
			}

			_, res, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}

			warnAll(io, res.Warnings)

			p, err := findNode(res.Root, args[1])
			if err != nil {
				return err
			}

			io.Printf("%s", p.Body())

			return nil
		},
	}
}
