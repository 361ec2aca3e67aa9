package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock is returned when a lock is held elsewhere and the caller
	// asked not to wait, or stopped waiting.
	ErrWouldBlock = errors.New("lock would block")

	errInodeMismatch = errors.New("inode mismatch")
)

// Locker takes advisory flock(2) locks on lock files.
//
// flock applies to an inode, so the lock file must stay put while locks are
// held. Locker checks after every acquisition that the descriptor it locked
// is still the file at path and retries if it was replaced in between.
//
// Exclusive locks open the file read-write, shared locks read-only.
type Locker struct {
	fs    FS
	flock func(fd int, how int) error
}

// NewLocker returns a Locker that opens lock files through fsys.
func NewLocker(fsys FS) *Locker {
	return &Locker{fs: fsys, flock: unix.Flock}
}

// Lock is a held lock. Release it with [Lock.Close].
type Lock struct {
	mu    sync.Mutex
	file  File
	flock func(fd int, how int) error
}

// Close unlocks and closes the lock file. Calling it again is a no-op.
func (lk *Lock) Close() error {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(lk.flock, int(lk.file.Fd()), unix.LOCK_UN)
	closeErr := lk.file.Close()
	lk.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking lock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Lock takes an exclusive lock on path, waiting in the kernel for as long
// as it takes. Missing parent directories are created.
func (l *Locker) Lock(path string) (*Lock, error) {
	return l.lockBlocking(path, unix.LOCK_EX)
}

// RLock takes a shared lock on path, waiting as long as it takes.
func (l *Locker) RLock(path string) (*Lock, error) {
	return l.lockBlocking(path, unix.LOCK_SH)
}

// TryLock takes an exclusive lock or fails at once with [ErrWouldBlock].
func (l *Locker) TryLock(path string) (*Lock, error) {
	return l.lockPolling(context.Background(), path, unix.LOCK_EX, false)
}

// TryRLock takes a shared lock or fails at once with [ErrWouldBlock].
func (l *Locker) TryRLock(path string) (*Lock, error) {
	return l.lockPolling(context.Background(), path, unix.LOCK_SH, false)
}

// LockContext polls for an exclusive lock until ctx is done. The error then
// matches both [ErrWouldBlock] and the context's error.
func (l *Locker) LockContext(ctx context.Context, path string) (*Lock, error) {
	return l.lockPolling(ctx, path, unix.LOCK_EX, true)
}

// RLockContext is [Locker.LockContext] for a shared lock.
func (l *Locker) RLockContext(ctx context.Context, path string) (*Lock, error) {
	return l.lockPolling(ctx, path, unix.LOCK_SH, true)
}

func (l *Locker) lockBlocking(path string, how int) (*Lock, error) {
	for {
		f, err := l.openLockFile(path, how)
		if err != nil {
			return nil, fmt.Errorf("opening lockfile: %w", err)
		}

		err = l.acquire(f, path, how)
		if err == nil {
			return &Lock{file: f, flock: l.flock}, nil
		}

		_ = f.Close()

		if !errors.Is(err, errInodeMismatch) {
			return nil, err
		}
	}
}

const maxBackoff = 25 * time.Millisecond

func (l *Locker) lockPolling(ctx context.Context, path string, how int, wait bool) (*Lock, error) {
	backoff := time.Millisecond

	for {
		f, err := l.openLockFile(path, how)
		if err != nil {
			return nil, fmt.Errorf("opening lockfile: %w", err)
		}

		err = l.acquire(f, path, how|unix.LOCK_NB)
		if err == nil {
			return &Lock{file: f, flock: l.flock}, nil
		}

		_ = f.Close()

		if !errors.Is(err, ErrWouldBlock) && !errors.Is(err, errInodeMismatch) {
			return nil, err
		}

		if !wait {
			return nil, ErrWouldBlock
		}

		timer := time.NewTimer(backoff)

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, fmt.Errorf("%w: %w", ErrWouldBlock, context.Cause(ctx))
		case <-timer.C:
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

// acquire flocks f and confirms it is still the file at path. On failure f
// is left unlocked but open.
func (l *Locker) acquire(f File, path string, how int) error {
	fd := int(f.Fd())

	if err := flockRetryEINTR(l.flock, fd, how); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return ErrWouldBlock
		}

		return fmt.Errorf("flock: %w", err)
	}

	var open, current unix.Stat_t

	err := unix.Fstat(fd, &open)
	if err == nil {
		err = unix.Stat(path, &current)
	}

	if err != nil || open.Dev != current.Dev || open.Ino != current.Ino {
		_ = flockRetryEINTR(l.flock, fd, unix.LOCK_UN)

		if err != nil && !errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("verifying inode match: %w", err)
		}

		return errInodeMismatch
	}

	return nil
}

func (l *Locker) openLockFile(path string, how int) (File, error) {
	flag := os.O_RDWR
	if how&unix.LOCK_SH != 0 {
		flag = os.O_RDONLY
	}

	f, err := l.fs.OpenFile(path, flag|os.O_CREATE, 0o600)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return f, err
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return l.fs.OpenFile(path, flag|os.O_CREATE, 0o600)
}

// flockRetryEINTR retries flock when a signal interrupts it, up to a cap.
func flockRetryEINTR(flock func(fd int, how int) error, fd int, how int) error {
	const maxRetries = 10000

	var err error
	for range maxRetries {
		err = flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
