package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/calvinalkan/outline/internal/config"
	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/fs"
	"github.com/calvinalkan/outline/pkg/outline"
)

var (
	ErrFileRequired  = errors.New("file argument is required")
	ErrNodeRequired  = errors.New("node argument is required")
	ErrQueryRequired = errors.New("query argument is required")
	ErrTooManyArgs   = errors.New("too many arguments")
	ErrNodeNotFound  = errors.New("node not found")
	ErrAmbiguousNode = errors.New("node is ambiguous")
	ErrNoMatches     = errors.New("no matches")
	ErrUnknownFormat = errors.New("unknown format")
)

// app is what the commands share. Run fills it in after the global flags
// and the configuration are resolved; command constructors only keep the
// pointer.
type app struct {
	cfg    config.Config
	fs     fs.FS
	logger *slog.Logger
	saver  *atfile.Saver
}

// path resolves p against the effective working directory.
func (a *app) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(a.cfg.EffectiveCwd, p)
}

func (a *app) newOutline() *outline.Outline {
	return outline.New(outline.NewGenerator(a.cfg.ID, time.Now()))
}

// load reads the external file at path into a fresh outline.
func (a *app) load(ctx context.Context, path string) (*outline.Outline, atfile.ReadResult, error) {
	o := a.newOutline()

	top := o.NewNode("", "")
	if err := o.AddRoot(top.GNX()); err != nil {
		return nil, atfile.ReadResult{}, err
	}

	res, err := a.saver.Load(ctx, o, o.RootAt(0), a.path(path))
	if err != nil {
		return nil, atfile.ReadResult{}, err
	}

	return o, res, nil
}

// writeOptions are the options every save starts from.
func (a *app) writeOptions() atfile.WriteOptions {
	return atfile.WriteOptions{
		Encoding: a.cfg.Encoding,
		Language: a.cfg.DefaultLanguage,
		Checkers: atfile.DefaultCheckers(),
	}
}

func warnAll(o *IO, warnings []atfile.Warning) {
	for _, w := range warnings {
		o.Warn("%s", w.String())
	}
}

// fileArg returns the single file argument of a command.
func fileArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", ErrFileRequired
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[1:], " "))
	}
}

// findNode resolves ref to a position below root: an exact gnx first, then
// an exact headline, then a unique headline substring.
func findNode(root outline.Position, ref string) (outline.Position, error) {
	all := root.SelfAndSubtree()

	for _, p := range all {
		if string(p.GNX()) == ref {
			return p, nil
		}
	}

	for _, p := range all {
		if p.Headline() == ref {
			return p, nil
		}
	}

	var (
		found outline.Position
		seen  = map[outline.GNX]bool{}
	)

	for _, p := range all {
		if !strings.Contains(p.Headline(), ref) || seen[p.GNX()] {
			continue
		}

		if len(seen) > 0 {
			return outline.Position{}, fmt.Errorf("%w: %q", ErrAmbiguousNode, ref)
		}

		seen[p.GNX()] = true
		found = p
	}

	if len(seen) == 0 {
		return outline.Position{}, fmt.Errorf("%w: %q", ErrNodeNotFound, ref)
	}

	return found, nil
}
