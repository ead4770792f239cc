// Package fsys implements the durable filesystem primitives every other
// package builds on: atomic whole-file writes, locked JSONL appends, and
// the workspace-scoped advisory write lock with stale-holder reclaim.
package fsys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CLIAIMONITOR/internal/corerr"
)

// WriteFileAtomic guarantees that readers see either the full new content
// or the prior content, never a partial write. It writes to a temp file in
// the same directory as path, fsyncs it, renames it over path, then
// fsyncs the parent directory so the rename itself is durable. Parent
// directories are created as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &corerr.IOError{Op: "mkdir " + dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &corerr.IOError{Op: "create temp for " + path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &corerr.IOError{Op: "write temp for " + path, Err: err}
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return &corerr.IOError{Op: "chmod temp for " + path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &corerr.IOError{Op: "fsync temp for " + path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &corerr.IOError{Op: "close temp for " + path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &corerr.IOError{Op: "rename into " + path, Err: err}
	}

	if err := fsyncDir(dir); err != nil {
		return &corerr.IOError{Op: "fsync dir " + dir, Err: err}
	}
	return nil
}

// fsyncDir fsyncs a directory so a preceding rename within it is durable
// across a crash. Best-effort: some filesystems reject fsync on a
// directory descriptor, which is tolerated rather than failing the write.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return nil
	}
	return nil
}

// EnsureDir creates dir (and parents) if absent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &corerr.IOError{Op: fmt.Sprintf("mkdir %s", dir), Err: err}
	}
	return nil
}
