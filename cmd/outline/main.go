// Package main is the outline command. It reads, writes and inspects
// external files annotated with outline sentinels.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/calvinalkan/outline/internal/cli"
)

func main() {
	// SIGHUP ends an interactive shell whose terminal went away.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, envMap(os.Environ()), sigCh))
}

// envMap turns KEY=value pairs into a map. Pairs without a key are skipped
// and the first of duplicate keys wins, as with os.Getenv.
func envMap(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))

	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}

		if _, seen := env[k]; !seen {
			env[k] = v
		}
	}

	return env
}
