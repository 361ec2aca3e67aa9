package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/outline"
)

var (
	errNoClipboard = errors.New("clipboard is empty")
	errBadIndex    = errors.New("no such child")
	errAtRoot      = errors.New("already at the root")
)

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell <file>",
		Short: "Edit the outline of an external file interactively",
		Long: `Load an external file and read commands from the terminal (or stdin).
Children are addressed by their index as printed by ls. Type "help" for
the command list. Changes are written only by "save".`,
		Exec: func(ctx context.Context, cio *IO, args []string) error {
			path, err := fileArg(args)
			if err != nil {
				return err
			}

			o, res, err := a.load(ctx, path)
			if err != nil {
				return err
			}

			warnAll(cio, res.Warnings)

			s := &shell{
				app:  a,
				out:  cio,
				o:    o,
				u:    outline.NewUndoer(o),
				file: a.path(path),
				root: res.Root,
				cur:  res.Root,
			}

			if f, ok := cio.In().(*os.File); ok && f == os.Stdin {
				return s.runLiner(ctx)
			}

			return s.runScanner(ctx, cio.In())
		},
	}
}

type shell struct {
	app  *app
	out  *IO
	o    *outline.Outline
	u    *outline.Undoer
	file string
	root outline.Position
	cur  outline.Position

	clipboard string
	dirty     bool
}

var shellCommands = []string{
	"ls", "cd", "pwd", "cat", "clone", "copy", "cut", "paste", "paste-retaining",
	"undo", "redo", "check", "save", "help", "quit", "exit",
}

const shellHelp = `Commands:
  ls                   list children of the current node
  cd <i>|..|/          enter child i, go up, or go to the root
  pwd                  print the headlines from the root to here
  cat [i]              print the body of the current node or child i
  clone <i>            clone child i, the clone follows it
  copy <i>             copy child i to the clipboard
  cut <i>              copy child i to the clipboard and unlink it
  paste                append the clipboard as a new subtree
  paste-retaining      append the clipboard, linking existing nodes as clones
  undo, redo           revert or reapply the last edit
  check                run the invariant checker
  save                 write the file
  quit, exit           leave the shell`

func (s *shell) runLiner(ctx context.Context) error {
	l := liner.NewLiner()
	defer l.Close()

	l.SetCtrlCAborts(true)
	l.SetCompleter(s.complete)

	s.readHistory(l)
	defer s.writeHistory(l)

	for ctx.Err() == nil {
		line, err := l.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		if strings.TrimSpace(line) != "" {
			l.AppendHistory(line)
		}

		if s.exec(ctx, line) {
			break
		}
	}

	s.warnUnsaved()

	return nil
}

func (s *shell) runScanner(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)

	for ctx.Err() == nil && sc.Scan() {
		if s.exec(ctx, sc.Text()) {
			break
		}
	}

	s.warnUnsaved()

	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func (s *shell) prompt() string {
	return s.cur.Headline() + "> "
}

func (s *shell) complete(line string) []string {
	var out []string

	for _, c := range shellCommands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}

	return out
}

func (s *shell) readHistory(l *liner.State) {
	if s.app.cfg.HistoryFile == "" {
		return
	}

	f, err := s.app.fs.Open(s.app.cfg.HistoryFile)
	if err != nil {
		return
	}

	defer f.Close()

	_, _ = l.ReadHistory(f)
}

// atomicFileWriter is implemented by filesystems that can replace a file
// in one step.
type atomicFileWriter interface {
	WriteFileAtomic(path string, data []byte) error
}

func (s *shell) writeHistory(l *liner.State) {
	path := s.app.cfg.HistoryFile
	if path == "" {
		return
	}

	var buf bytes.Buffer

	if _, err := l.WriteHistory(&buf); err != nil {
		s.app.logger.Debug("shell history", "err", err)

		return
	}

	var err error

	if w, ok := s.app.fs.(atomicFileWriter); ok {
		err = w.WriteFileAtomic(path, buf.Bytes())
	} else {
		err = s.app.fs.WriteFile(path, buf.Bytes(), 0o600)
	}

	if err != nil {
		s.app.logger.Debug("shell history", "path", path, "err", err)
	}
}

func (s *shell) warnUnsaved() {
	if s.dirty {
		s.out.Warn("%s has unsaved changes", s.file)
	}
}

// exec runs one command line and reports whether the shell should stop.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name, args := strings.ToLower(fields[0]), fields[1:]

	var err error

	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.out.Println(shellHelp)
	case "ls":
		s.ls()
	case "cd":
		err = s.cd(args)
	case "pwd":
		s.pwd()
	case "cat":
		err = s.cat(args)
	case "clone":
		err = s.edit(args, func(p outline.Position) error {
			_, err := s.u.Clone(p)
			return err
		})
	case "copy":
		err = s.edit(args, func(p outline.Position) error {
			blob, err := atfile.Copy(s.o, p)
			if err == nil {
				s.clipboard = blob
			}

			return err
		})
	case "cut":
		err = s.edit(args, func(p outline.Position) error {
			blob, err := atfile.Cut(s.o, p, s.u)
			if err == nil {
				s.clipboard = blob
			}

			return err
		})
	case "paste":
		err = s.paste(atfile.PasteNew)
	case "paste-retaining":
		err = s.paste(atfile.PasteRetainingClones)
	case "undo":
		err = s.history(s.u.UndoLabel(), s.u.Undo, "undid")
	case "redo":
		err = s.history(s.u.RedoLabel(), s.u.Redo, "redid")
	case "check":
		s.check(true)
	case "save":
		err = s.save(ctx)
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", name)
	}

	if err != nil {
		s.out.ErrPrintln("error:", err)
	}

	return false
}

func (s *shell) ls() {
	for i, c := range s.cur.Children() {
		mark := " "
		if c.HasChildren() {
			mark = "+"
		}

		if c.IsCloned() {
			mark += "*"
		} else {
			mark += " "
		}

		s.out.Printf("%3d %s %s [%s]\n", i, mark, c.Headline(), c.GNX())
	}
}

func (s *shell) child(args []string) (outline.Position, error) {
	if len(args) != 1 {
		return outline.Position{}, fmt.Errorf("%w: want one child index", errBadIndex)
	}

	i, err := strconv.Atoi(args[0])
	if err != nil {
		return outline.Position{}, fmt.Errorf("%w: %s", errBadIndex, args[0])
	}

	c := s.cur.Child(i)
	if c.IsZero() {
		return outline.Position{}, fmt.Errorf("%w: %d", errBadIndex, i)
	}

	return c, nil
}

func (s *shell) cd(args []string) error {
	if len(args) == 1 {
		switch args[0] {
		case "/":
			s.cur = s.root

			return nil
		case "..":
			if s.cur.Equal(s.root) {
				return errAtRoot
			}

			s.cur = s.cur.Parent()

			return nil
		}
	}

	c, err := s.child(args)
	if err != nil {
		return err
	}

	s.cur = c

	return nil
}

func (s *shell) pwd() {
	var names []string

	for _, p := range s.cur.Ancestors() {
		if s.root.Equal(p) || s.root.IsAncestorOf(p) {
			names = append([]string{p.Headline()}, names...)
		}
	}

	s.out.Println(strings.Join(append(names, s.cur.Headline()), " / "))
}

func (s *shell) cat(args []string) error {
	p := s.cur

	if len(args) > 0 {
		c, err := s.child(args)
		if err != nil {
			return err
		}

		p = c
	}

	s.out.Printf("%s", p.Body())

	return nil
}

// edit applies fn to the child named by args and checks the outline.
func (s *shell) edit(args []string, fn func(outline.Position) error) error {
	c, err := s.child(args)
	if err != nil {
		return err
	}

	if err := fn(c); err != nil {
		return err
	}

	s.afterEdit()

	return nil
}

func (s *shell) paste(mode atfile.PasteMode) error {
	if s.clipboard == "" {
		return errNoClipboard
	}

	gnx, warnings, err := atfile.Paste(s.o, s.clipboard, s.cur.GNX(), s.cur.NumChildren(), mode, s.u)
	if err != nil {
		return err
	}

	warnAll(s.out, warnings)
	s.out.Printf("pasted %s (%s)\n", gnx, mode)
	s.afterEdit()

	return nil
}

func (s *shell) history(label string, fn func() error, verb string) error {
	if err := fn(); err != nil {
		return err
	}

	s.out.Printf("%s %s\n", verb, label)
	s.afterEdit()

	return nil
}

// afterEdit marks the outline dirty, moves off positions an edit removed
// and reports invariant violations.
func (s *shell) afterEdit() {
	s.dirty = true

	for !s.cur.IsZero() && !s.cur.Valid() {
		s.cur = s.cur.Parent()
	}

	if s.cur.IsZero() {
		s.cur = s.root
	}

	s.check(false)
}

func (s *shell) check(verbose bool) {
	violations := outline.Check(s.o)

	for _, v := range violations {
		s.out.Warn("invariant: %s", v.String())
	}

	if verbose && len(violations) == 0 {
		s.out.Println("ok")
	}
}

func (s *shell) save(ctx context.Context) error {
	res, err := s.app.saver.Save(ctx, s.o, s.root, s.file, s.app.writeOptions())
	if err != nil {
		return err
	}

	warnAll(s.out, res.Warnings)
	s.dirty = false

	if res.Unchanged {
		s.out.Println("unchanged")
	} else {
		s.out.Printf("wrote %d bytes\n", res.Bytes)
	}

	return nil
}
