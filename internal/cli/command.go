package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// helpWidth is the column at which flag descriptions are wrapped.
const helpWidth = 80

// Command is one subcommand of outline. Most take an external file as their
// first argument.
type Command struct {
	// Flags are parsed after the command name. Global flags (--cwd,
	// --config, --language and so on) must come before it.
	Flags *flag.FlagSet

	// Usage starts with the command name, followed by its arguments:
	// "cat <file> <node>", "dump <file> [flags]".
	Usage string

	// Short is the line shown in the command listing.
	Short string

	// Long is the description shown by --help. Short is used when it is
	// empty.
	Long string

	// Examples are invocations without the leading "outline".
	Examples []string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the listing entry for c with Usage padded to width.
func (c *Command) HelpLine(width int) string {
	return fmt.Sprintf("  %-*s  %s", width, c.Usage, c.Short)
}

// usageWidth is the width of the longest Usage in commands.
func usageWidth(commands []*Command) int {
	width := 0
	for _, c := range commands {
		width = max(width, len(c.Usage))
	}

	return width
}

// PrintHelp prints the output of "outline <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: outline", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsagesWrapped(helpWidth))
	}

	if len(c.Examples) > 0 {
		o.Println()
		o.Println("Examples:")

		for _, ex := range c.Examples {
			o.Println("  outline", ex)
		}
	}

	o.Println()
	o.Println(`Global flags go before the command; see "outline --help".`)
}

// Run parses flags and executes the command. Returns exit code.
// Errors are printed here so output ordering stays consistent.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln(fmt.Sprintf(`Run "outline %s --help" for usage.`, c.Name()))

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return 0
}
