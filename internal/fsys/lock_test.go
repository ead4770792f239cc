package fsys

import (
	"os"
	"testing"
	"time"
)

func TestAcquireAndReleaseWorkspaceLock(t *testing.T) {
	root := t.TempDir()

	l, err := AcquireWorkspaceLock(root)
	if err != nil {
		t.Fatalf("AcquireWorkspaceLock error: %v", err)
	}
	if _, err := os.Stat(lockPath(root)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := os.Stat(lockPath(root)); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed after Release, stat err = %v", err)
	}
}

func TestAcquireWorkspaceLockContended(t *testing.T) {
	root := t.TempDir()

	l, err := AcquireWorkspaceLock(root)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer l.Release()

	if _, err := AcquireWorkspaceLock(root); err == nil {
		t.Error("second acquire succeeded, want LockContended")
	}
}

func TestStaleMetaReclaimsDeadHolder(t *testing.T) {
	m := lockMeta{PID: 999999, AcquiredAt: time.Now().Add(-2 * time.Minute)}
	if !staleMeta(m) {
		t.Error("staleMeta() = false for an old lock with an implausible pid, want true")
	}

	fresh := lockMeta{PID: os.Getpid(), AcquiredAt: time.Now()}
	if staleMeta(fresh) {
		t.Error("staleMeta() = true for a fresh lock held by this live process, want false")
	}
}
