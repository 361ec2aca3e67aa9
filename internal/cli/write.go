package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// WriteCmd returns the write command.
func WriteCmd(a *app) *Command {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	encoding := fs.String("encoding", "", "Write with this `encoding` instead of the one in effect")
	noCheck := fs.Bool("no-check", false, "Skip the syntax check of the written file")

	return &Command{
		Flags:    fs,
		Usage:    "write <file> [flags]",
		Short:    "Read an external file and write it back",
		Examples: []string{"write src/app.py", "write --encoding latin-1 --no-check notes.txt"},
		Long: `Read an external file and save it again. A file that would not change is
left untouched and reported as unchanged.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execWrite(ctx, io, a, args, *encoding, *noCheck)
		},
	}
}

func execWrite(ctx context.Context, io *IO, a *app, args []string, encoding string, noCheck bool) error {
	path, err := fileArg(args)
	if err != nil {
		return err
	}

	o, res, err := a.load(ctx, path)
	if err != nil {
		return err
	}

	warnAll(io, res.Warnings)

	opts := a.writeOptions()

	if encoding != "" {
		opts.Encoding = encoding
	}

	if noCheck {
		opts.Checkers = nil
	}

	saved, err := a.saver.Save(ctx, o, res.Root, a.path(path), opts)
	if err != nil {
		return err
	}

	warnAll(io, saved.Warnings)

	if saved.Unchanged {
		io.Println("unchanged", path)

		return nil
	}

	io.Printf("wrote %s (%d bytes)\n", path, saved.Bytes)

	return nil
}
