package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/calvinalkan/outline/pkg/outline"
)

// Hit is one indexed node occurrence.
type Hit struct {
	GNX      outline.GNX
	File     string
	Level    int
	Headline string
	Cloned   bool
}

// File is one indexed external file.
type File struct {
	Path     string
	Root     outline.GNX
	Encoding string
	Nodes    int
}

// Find returns the occurrences whose gnx starts with query or whose
// headline contains it, ignoring ASCII case. Results are in file order. A
// limit <= 0 means no limit.
func (ix *Index) Find(ctx context.Context, query string, limit int) ([]Hit, error) {
	if ix.db == nil {
		return nil, ErrClosed
	}

	lock, err := ix.locker.RLockContext(ctx, ix.lockPath())
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	if limit <= 0 {
		limit = -1
	}

	pat := escapeLike(query)

	rows, err := ix.db.QueryContext(ctx, `
		SELECT gnx, file, level, headline, cloned FROM nodes
		WHERE gnx LIKE ? ESCAPE '\' OR headline LIKE ? ESCAPE '\'
		ORDER BY file, ord
		LIMIT ?`, pat+"%", "%"+pat+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var hits []Hit

	for rows.Next() {
		var (
			h   Hit
			gnx string
		)

		if err := rows.Scan(&gnx, &h.File, &h.Level, &h.Headline, &h.Cloned); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		h.GNX = outline.GNX(gnx)
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return hits, nil
}

// Files lists the indexed files by path.
func (ix *Index) Files(ctx context.Context) ([]File, error) {
	if ix.db == nil {
		return nil, ErrClosed
	}

	lock, err := ix.locker.RLockContext(ctx, ix.lockPath())
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	rows, err := ix.db.QueryContext(ctx, "SELECT path, root, encoding, nodes FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var files []File

	for rows.Next() {
		var (
			f    File
			root string
		)

		if err := rows.Scan(&f.Path, &root, &f.Encoding, &f.Nodes); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		f.Root = outline.GNX(root)
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return files, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
