// Package index keeps a SQLite table of every node found in the external
// files under a directory, so nodes can be looked up by gnx or headline
// without reading the files.
//
// The database lives in <dir>/index.sqlite next to a lock file. Rebuild
// takes the lock exclusively and Find takes it shared, so concurrent
// outline processes never see a half-written index.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/outline/pkg/fs"
)

const (
	dbName   = "index.sqlite"
	lockName = "index.lock"

	schemaVersion = 1

	busyTimeoutMs = 5000
)

// ErrClosed is returned by methods of a closed Index.
var ErrClosed = errors.New("index is closed")

// Index is an open node index.
type Index struct {
	db     *sql.DB
	fs     fs.FS
	locker *fs.Locker
	dir    string
	logger *slog.Logger
}

// Open opens the index in dir, creating the directory and the schema as
// needed. A database written by another schema version is emptied; the
// next Rebuild fills it again.
func Open(ctx context.Context, fsys fs.FS, dir string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	ix := &Index{
		fs:     fsys,
		locker: fs.NewLocker(fsys),
		dir:    dir,
		logger: logger,
	}

	lock, err := ix.locker.LockContext(ctx, ix.lockPath())
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	db, err := openSqlite(ctx, filepath.Join(dir, dbName))
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	ix.db = db

	return ix, nil
}

// Close closes the database. Calling it again returns nil.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}

	err := ix.db.Close()
	ix.db = nil

	if err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}

	return nil
}

// Dir returns the directory holding the database.
func (ix *Index) Dir() string {
	return ix.dir
}

func (ix *Index) lockPath() string {
	return filepath.Join(ix.dir, lockName)
}

func openSqlite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("sqlite: ping: %w", err), db.Close())
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`, busyTimeoutMs))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("sqlite: apply pragmas: %w", err), db.Close())
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int

	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: user_version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		DROP TABLE IF EXISTS nodes;
		DROP TABLE IF EXISTS files;
		CREATE TABLE files (
			path     TEXT PRIMARY KEY,
			root     TEXT NOT NULL,
			encoding TEXT NOT NULL,
			nodes    INTEGER NOT NULL,
			mtime_ns INTEGER NOT NULL,
			size     INTEGER NOT NULL
		);
		CREATE TABLE nodes (
			file     TEXT NOT NULL,
			ord      INTEGER NOT NULL,
			gnx      TEXT NOT NULL,
			level    INTEGER NOT NULL,
			headline TEXT NOT NULL,
			cloned   INTEGER NOT NULL,
			PRIMARY KEY (file, ord)
		);
		CREATE INDEX nodes_gnx ON nodes (gnx);
		PRAGMA user_version = %d;
	`, schemaVersion))
	if err != nil {
		return fmt.Errorf("sqlite: create schema: %w", err)
	}

	return nil
}
