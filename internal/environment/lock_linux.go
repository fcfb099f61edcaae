// SPDX-License-Identifier: MPL-2.0

//go:build linux

package environment

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// errFlockUnavailable is only returned on platforms without flock; it is
// declared here so callers compile everywhere.
var errFlockUnavailable = errors.New("flock not available on this platform")

// fileLock holds a blocking exclusive flock on a lock file next to the
// metadata file, serializing metadata updates across envrun processes.
type fileLock struct {
	file *os.File
}

// acquireFileLock opens (or creates) path and blocks until the exclusive
// lock is granted. The lock file is left behind; the kernel releases the
// lock when the descriptor closes, including on crash.
func acquireFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &fileLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *fileLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
