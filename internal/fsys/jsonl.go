package fsys

import (
	"os"
	"path/filepath"

	"github.com/CLIAIMONITOR/internal/corerr"
	"golang.org/x/sys/unix"
)

// AppendEventJSONL appends a single '\n'-terminated JSON line under a
// per-file advisory lock (flock), guaranteeing no line interleaving
// across concurrent writers. line must not itself contain a trailing
// newline; one is added.
func AppendEventJSONL(path string, line []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &corerr.IOError{Op: "open " + path, Err: err}
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return &corerr.IOError{Op: "flock " + path, Err: err}
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if _, err := f.Write(buf); err != nil {
		return &corerr.IOError{Op: "append " + path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &corerr.IOError{Op: "fsync " + path, Err: err}
	}
	return nil
}
