package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrAtomicWriteDirSync reports that the new file is in place but its
// directory could not be synced, so the rename may not survive a crash.
var ErrAtomicWriteDirSync = errors.New("dir sync")

// AtomicWriter replaces files by writing a temp file in the same directory
// and renaming it over the target.
type AtomicWriter struct {
	fs FS
}

// NewAtomicWriter returns an AtomicWriter over fsys. It panics on a nil fsys.
func NewAtomicWriter(fsys FS) *AtomicWriter {
	if fsys == nil {
		panic("fs is nil")
	}

	return &AtomicWriter{fs: fsys}
}

// AtomicWriteOptions configures [AtomicWriter.Write].
type AtomicWriteOptions struct {
	// SyncDir syncs the parent directory after the rename.
	SyncDir bool

	// Perm is the mode of the new file, applied with chmod so the umask
	// does not apply. Must be non-zero.
	Perm os.FileMode

	// KeepPerm uses the mode of the file being replaced, if there is one,
	// instead of Perm.
	KeepPerm bool
}

// Write copies r into path atomically. Readers see either the old content
// or the new, never a mix.
//
// A failed directory sync returns an error matching [ErrAtomicWriteDirSync];
// the content has been replaced in that case.
func (w *AtomicWriter) Write(path string, r io.Reader, opts AtomicWriteOptions) error {
	if r == nil {
		panic("reader is nil")
	}

	if path == "" {
		return errors.New("path is empty")
	}

	if opts.Perm == 0 {
		return errors.New("opts.Perm must be non-zero")
	}

	dir, base := filepath.Split(path)
	if base == "" || base == "." {
		return fmt.Errorf("path is invalid: %q", path)
	}

	if dir == "" {
		dir = "."
	}

	dir = filepath.Clean(dir)

	perm := opts.Perm

	if opts.KeepPerm {
		info, err := w.fs.Stat(path)

		switch {
		case err == nil:
			perm = info.Mode().Perm()
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("stat %q: %w", path, err)
		}
	}

	tmp, tmpPath, err := createTemp(w.fs, dir, base, perm)
	if err != nil {
		return err
	}

	cleanup := func() error {
		return errors.Join(closeFile("temp file", tmpPath, tmp), removeTemp(w.fs, tmpPath))
	}

	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(fmt.Errorf("chmod temp file %q: %w", tmpPath, err), cleanup())
	}

	if _, err := io.Copy(tmp, r); err != nil {
		return errors.Join(fmt.Errorf("write temp file %q: %w", tmpPath, err), cleanup())
	}

	if err := tmp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync temp file %q: %w", tmpPath, err), cleanup())
	}

	if err := w.fs.Rename(tmpPath, path); err != nil {
		return errors.Join(fmt.Errorf("rename: %w", err), cleanup())
	}

	// The temp name is gone after the rename, only the close matters.
	_ = cleanup()

	if opts.SyncDir {
		return syncDir(w.fs, dir)
	}

	return nil
}

// WriteWithDefaults is Write with [AtomicWriter.DefaultOptions].
func (w *AtomicWriter) WriteWithDefaults(path string, r io.Reader) error {
	return w.Write(path, r, w.DefaultOptions())
}

// DefaultOptions syncs the directory and creates files with mode 0644.
func (*AtomicWriter) DefaultOptions() AtomicWriteOptions {
	return AtomicWriteOptions{
		SyncDir: true,
		Perm:    0o644,
	}
}

const tempAttempts = 10000

var tempCounter atomic.Uint64

func createTemp(fsys FS, dir, base string, perm os.FileMode) (File, string, error) {
	for range tempAttempts {
		path := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d", base, tempCounter.Add(1)))

		f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			return f, path, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
	}

	return nil, "", fmt.Errorf("exhausted temp file attempts in %q", dir)
}

func syncDir(fsys FS, dir string) error {
	d, err := fsys.Open(dir)
	if err != nil {
		return errors.Join(ErrAtomicWriteDirSync, fmt.Errorf("open dir %q: %w", dir, err))
	}

	if err := d.Sync(); err != nil {
		return errors.Join(ErrAtomicWriteDirSync, fmt.Errorf("%q: %w", dir, err), closeFile("dir", dir, d))
	}

	return closeFile("dir", dir, d)
}

func closeFile(what, path string, f File) error {
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s %q: %w", what, path, err)
	}

	return nil
}

func removeTemp(fsys FS, path string) error {
	err := fsys.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp file %q: %w", path, err)
	}

	return nil
}
