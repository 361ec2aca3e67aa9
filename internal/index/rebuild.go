package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/calvinalkan/outline/pkg/atfile"
	"github.com/calvinalkan/outline/pkg/outline"
)

// Issue is a file that looked like an external file but could not be read.
type Issue struct {
	Path string
	Err  error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

// RebuildOptions configures Rebuild.
type RebuildOptions struct {
	// Include filters candidate files by path. Nil includes every file.
	Include func(path string) bool

	// SessionID is the id of the throwaway gnx generator used while
	// reading. Empty picks a random one.
	SessionID string
}

// RebuildResult summarizes a Rebuild.
type RebuildResult struct {
	Files int
	Nodes int
	// Skipped counts included files without a sentinel header.
	Skipped int
	Issues  []Issue
}

type fileRow struct {
	path     string
	root     outline.GNX
	encoding string
	mtimeNS  int64
	size     int64
	nodes    []nodeRow
}

type nodeRow struct {
	gnx      outline.GNX
	level    int
	headline string
	cloned   bool
}

// Rebuild replaces the index with the external files found under root.
// Paths are stored relative to root. Hidden directories and the index
// directory itself are not descended into.
//
// Unreadable external files are reported in Issues and left out; they do
// not fail the rebuild.
func (ix *Index) Rebuild(ctx context.Context, root string, opts RebuildOptions) (RebuildResult, error) {
	var result RebuildResult

	if ix.db == nil {
		return result, ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("canceled: %w", context.Cause(ctx))
	}

	lock, err := ix.locker.LockContext(ctx, ix.lockPath())
	if err != nil {
		return result, fmt.Errorf("acquiring index lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	paths, err := ix.walk(ctx, root, opts.Include)
	if err != nil {
		return result, err
	}

	saver := atfile.NewSaver(ix.fs, ix.logger)
	rows := make([]fileRow, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return RebuildResult{}, fmt.Errorf("canceled: %w", context.Cause(ctx))
		}

		row, err := ix.load(ctx, saver, root, path, opts.SessionID)

		switch {
		case errors.Is(err, atfile.ErrMissingHeader):
			result.Skipped++
		case err != nil:
			ix.logger.WarnContext(ctx, "index: unreadable file", "path", path, "err", err)
			result.Issues = append(result.Issues, Issue{Path: row.path, Err: err})
		default:
			rows = append(rows, row)
			result.Files++
			result.Nodes += len(row.nodes)
		}
	}

	if err := ix.store(ctx, rows); err != nil {
		return RebuildResult{}, err
	}

	ix.logger.InfoContext(ctx, "index rebuilt",
		"root", root, "files", result.Files, "nodes", result.Nodes,
		"skipped", result.Skipped, "issues", len(result.Issues))

	return result, nil
}

// walk lists regular files under root in lexical order.
func (ix *Index) walk(ctx context.Context, root string, include func(string) bool) ([]string, error) {
	indexDir := filepath.Clean(ix.dir)

	var (
		paths []string
		visit func(dir string) error
	)

	visit = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled: %w", context.Cause(ctx))
		}

		entries, err := ix.fs.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}

		for _, e := range entries {
			path := filepath.Join(dir, e.Name())

			switch {
			case e.IsDir():
				if strings.HasPrefix(e.Name(), ".") || filepath.Clean(path) == indexDir {
					continue
				}

				if err := visit(path); err != nil {
					return err
				}
			case e.Type().IsRegular():
				if include == nil || include(path) {
					paths = append(paths, path)
				}
			}
		}

		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}

	slices.Sort(paths)

	return paths, nil
}

func (ix *Index) load(ctx context.Context, saver *atfile.Saver, root, path, sessionID string) (fileRow, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	row := fileRow{path: filepath.ToSlash(rel)}

	info, err := ix.fs.Stat(path)
	if err != nil {
		return row, fmt.Errorf("stat: %w", err)
	}

	row.mtimeNS = info.ModTime().UnixNano()
	row.size = info.Size()

	o := outline.New(outline.NewGenerator(sessionID, time.Now()))

	top := o.NewNode("", "")
	if err := o.AddRoot(top.GNX()); err != nil {
		return row, err
	}

	res, err := saver.Load(ctx, o, o.RootAt(0), path)
	if err != nil {
		return row, err
	}

	row.root = res.Root.GNX()
	row.encoding = res.Encoding
	base := res.Root.Level()

	for _, p := range res.Root.SelfAndSubtree() {
		row.nodes = append(row.nodes, nodeRow{
			gnx:      p.GNX(),
			level:    p.Level() - base,
			headline: p.Headline(),
			cloned:   p.IsCloned(),
		})
	}

	return row, nil
}

func (ix *Index) store(ctx context.Context, rows []fileRow) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes; DELETE FROM files;"); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}

	fileStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO files (path, root, encoding, nodes, mtime_ns, size) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}

	defer func() { _ = fileStmt.Close() }()

	nodeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (file, ord, gnx, level, headline, cloned) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}

	defer func() { _ = nodeStmt.Close() }()

	for _, f := range rows {
		if _, err := fileStmt.ExecContext(ctx, f.path, string(f.root), f.encoding, len(f.nodes), f.mtimeNS, f.size); err != nil {
			return fmt.Errorf("sqlite: insert file %s: %w", f.path, err)
		}

		for i, n := range f.nodes {
			if _, err := nodeStmt.ExecContext(ctx, f.path, i, string(n.gnx), n.level, n.headline, n.cloned); err != nil {
				return fmt.Errorf("sqlite: insert node %s: %w", n.gnx, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	committed = true

	return nil
}
