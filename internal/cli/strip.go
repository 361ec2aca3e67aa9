package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// StripCmd returns the strip command.
func StripCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("strip", flag.ContinueOnError),
		Usage: "strip <file>",
		Short: "Print an external file without sentinels",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			path, err := fileArg(args)
			if err != nil {
				return err
			}

			text, err := a.saver.Strip(ctx, a.path(path))
			if err != nil {
				return err
			}

			io.Printf("%s", text)

			return nil
		},
	}
}
