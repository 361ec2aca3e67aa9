package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/pkg/outline"
)

// NewGNXCmd returns the new-gnx command.
func NewGNXCmd(a *app) *Command {
	fs := flag.NewFlagSet("new-gnx", flag.ContinueOnError)
	count := fs.IntP("count", "n", 1, "Number of gnxs to print")

	return &Command{
		Flags:    fs,
		Usage:    "new-gnx [flags]",
		Short:    "Print fresh node identities",
		Examples: []string{"new-gnx -n 3"},
		Long: `Print new gnxs of the form <id>.<timestamp>.<n>. The id comes from the
configuration, or is random when none is configured.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			gen := outline.NewGenerator(a.cfg.ID, time.Now())

			for range max(*count, 0) {
				io.Println(gen.Next())
			}

			return nil
		},
	}
}
