// Package fs is the filesystem seam used by the outline tools.
//
// Everything that touches disk goes through [FS], so external files, the
// index database directory and lock files can be redirected in tests. [Real]
// is the only implementation shipped; it forwards to [os].
//
// On top of [FS] the package provides [AtomicWriter], which replaces a file
// by writing a temp file next to it and renaming it into place, and
// [Locker], an advisory flock(2) lock keyed by path.
//
//	fsys := fs.NewReal()
//	w := fs.NewAtomicWriter(fsys)
//	err := w.Write("src/main.py", strings.NewReader(text), w.DefaultOptions())
package fs

import (
	"io"
	"os"
)

// File is an open file. [os.File] satisfies it.
//
// Fd must return a real descriptor, [Locker] passes it to flock.
type File interface {
	io.ReadWriteCloser
	io.Seeker

	Fd() uintptr
	Stat() (os.FileInfo, error)
	Sync() error
	Chmod(mode os.FileMode) error
}

// FS lists the filesystem operations the outline tools need. Methods mirror
// the [os] function of the same name, including error values, so callers
// can use [errors.Is] with [os.ErrNotExist] and friends.
//
// Paths are OS paths, not the slash-separated paths of io/fs.
type FS interface {
	Open(path string) (File, error)
	Create(path string) (File, error)
	OpenFile(path string, flag int, perm os.FileMode) (File, error)
	ReadFile(path string) ([]byte, error)

	// WriteFile is neither atomic nor durable. Use [AtomicWriter] for files
	// the user cares about.
	WriteFile(path string, data []byte, perm os.FileMode) error

	ReadDir(path string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether path exists. A missing path is (false, nil).
	Exists(path string) (bool, error)

	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}

var _ File = (*os.File)(nil)
