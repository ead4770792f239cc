package fsys

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/CLIAIMONITOR/internal/corerr"
	"golang.org/x/sys/unix"
)

// staleAfter is how long a lock file may sit before its holder is
// considered stale, per spec.md §4.A.
const staleAfter = 60 * time.Second

// lockMeta is the JSON body written into the lock file.
type lockMeta struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// WorkspaceLock holds an acquired exclusive advisory lock at
// .local/locks/workspace.write.lock. Release must be called to drop it.
type WorkspaceLock struct {
	path string
	file *os.File
}

func lockPath(root string) string {
	return filepath.Join(root, ".local", "locks", "workspace.write.lock")
}

// processAlive reports whether pid refers to a live process, probed with
// signal 0 (no signal delivered, just existence/permission checked) via
// golang.org/x/sys/unix — portable across the unix targets this engine
// runs on, unlike the Windows-only OpenProcess/tasklist probing a GUI
// shell would use.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// AcquireWorkspaceLock acquires the workspace write lock, reclaiming a
// stale holder (lock file older than 60s AND recorded pid not alive). On
// contention it returns *corerr.LockContended immediately; callers
// implement their own backoff-and-retry loop (see WithBackoff, which
// implements spec.md §9's capped exponential backoff).
func AcquireWorkspaceLock(root string) (*WorkspaceLock, error) {
	path := lockPath(root)
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &corerr.IOError{Op: "open lock " + path, Err: err}
	}
	fd := int(f.Fd())

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		existing, readErr := readLockMeta(path)
		if readErr == nil && staleMeta(existing) {
			return stealLock(path)
		}
		holder := 0
		if readErr == nil {
			holder = existing.PID
		}
		return nil, &corerr.LockContended{LockPath: path, HolderPID: holder}
	}

	if err := writeLockMeta(f, lockMeta{PID: os.Getpid(), AcquiredAt: time.Now()}); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		f.Close()
		return nil, err
	}
	// f is intentionally kept open (not deferred-closed): the flock is
	// tied to this open file description, and Release below closes it.
	return &WorkspaceLock{path: path, file: f}, nil
}

// stealLock re-acquires a lock file whose metadata proves its prior
// holder is gone. The kernel already released that holder's flock when
// its process exited, so a fresh LOCK_EX|LOCK_NB here succeeds unless a
// third party raced us.
func stealLock(path string) (*WorkspaceLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &corerr.IOError{Op: "reopen stale lock " + path, Err: err}
	}
	fd := int(f.Fd())

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, &corerr.LockContended{LockPath: path}
	}
	if err := writeLockMeta(f, lockMeta{PID: os.Getpid(), AcquiredAt: time.Now()}); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		f.Close()
		return nil, err
	}
	return &WorkspaceLock{path: path, file: f}, nil
}

func staleMeta(m lockMeta) bool {
	return time.Since(m.AcquiredAt) > staleAfter && !processAlive(m.PID)
}

func readLockMeta(path string) (lockMeta, error) {
	var m lockMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) == 0 {
		return m, os.ErrInvalid
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

// writeLockMeta overwrites the locked file's contents in place; replacing
// it by rename would leave the flock on the old, unlinked inode.
func writeLockMeta(f *os.File, m lockMeta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return &corerr.Fatal{Message: "marshal lock metadata: " + err.Error()}
	}
	if err := f.Truncate(0); err != nil {
		return &corerr.IOError{Op: "truncate lock " + f.Name(), Err: err}
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return &corerr.IOError{Op: "write lock " + f.Name(), Err: err}
	}
	return nil
}

// Release drops the lock and removes its metadata file.
func (l *WorkspaceLock) Release() error {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	return os.Remove(l.path)
}

// WithBackoff retries fn, which should return *corerr.LockContended on
// contention, with exponential backoff and jitter capped at 30s total
// (spec.md §9 retry discipline for the workspace write lock).
func WithBackoff(fn func() (*WorkspaceLock, error)) (*WorkspaceLock, error) {
	const totalCap = 30 * time.Second
	delay := 50 * time.Millisecond
	deadline := time.Now().Add(totalCap)

	for {
		l, err := fn()
		if err == nil {
			return l, nil
		}
		if _, ok := err.(*corerr.LockContended); !ok {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		time.Sleep(delay + jitter)
		delay *= 2
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
	}
}
