package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/internal/config"
	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/fs"
)

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh cancels the context handed to the running command.
// sigCh may be nil.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("outline", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	verbose := globals.BoolP("verbose", "v", false, "Log debug output to stderr")
	indexDir := globals.String("index-dir", "", "Keep the index in `dir`")
	language := globals.String("language", "", "Default `language` for files without one")
	help := globals.BoolP("help", "h", false, "Show help")

	a := &app{fs: fs.NewReal()}
	commands := allCommands(a)

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	rest := globals.Args()

	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		Overrides:       config.Config{IndexDir: *indexDir, DefaultLanguage: *language},
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	a.saver = atfile.NewSaver(a.fs, a.logger)

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a.logger.DebugContext(ctx, "run", "command", cmd.Name(), "cwd", cfg.EffectiveCwd)

	o := NewIO(in, out, errOut)

	code := cmd.Run(ctx, o, rest[1:])

	return max(code, o.Finish())
}

func allCommands(a *app) []*Command {
	return []*Command{
		ReadCmd(a),
		WriteCmd(a),
		TreeCmd(a),
		CatCmd(a),
		DumpCmd(a),
		StripCmd(a),
		IndexCmd(a),
		FindCmd(a),
		ShellCmd(a),
		NewGNXCmd(a),
		PrintConfigCmd(a),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `outline - sentinel-annotated external files

Usage: outline [global flags] <command> [args]

Global flags:`)

	_, _ = io.WriteString(w, globals.FlagUsagesWrapped(helpWidth))

	fprintln(w)
	fprintln(w, "Commands:")

	width := usageWidth(commands)
	for _, c := range commands {
		fprintln(w, c.HelpLine(width))
	}

	fprintln(w)
	fprintln(w, `Run "outline <command> --help" for command flags.`)
}
