// Package lock prevents two sherpa runs from sharing a working tree. The
// lock is a file holding the owner's PID; a lock whose process is dead is
// stale and gets taken over.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pablasso/sherpa/internal/task"
)

const lockFileName = "run.lock"

// RunLock guards a working directory against concurrent runs.
type RunLock struct {
	path string
}

// New creates a lock manager for the given working directory.
func New(workDir string) *RunLock {
	return &RunLock{
		path: filepath.Join(task.StateDir(workDir), lockFileName),
	}
}

// Acquire takes the lock, removing a stale lock left by a dead process.
// Returns an error when another live process holds it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
		f.Close()
		if writeErr != nil {
			os.Remove(l.path)
			return fmt.Errorf("write lock file: %w", writeErr)
		}
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("create lock file: %w", err)
	}

	data, readErr := os.ReadFile(l.path)
	if readErr != nil {
		return fmt.Errorf("read existing lock file: %w", readErr)
	}

	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr == nil && processExists(pid) {
		return fmt.Errorf("another run is already in progress (PID %d)", pid)
	}

	// Unparsable PID or dead owner: the lock is stale.
	if removeErr := os.Remove(l.path); removeErr != nil {
		return fmt.Errorf("remove stale lock file: %w", removeErr)
	}
	return l.retryAcquire()
}

// retryAcquire makes one more O_EXCL attempt after a stale lock was
// removed. A single retry avoids looping against a racing acquirer.
func (l *RunLock) retryAcquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("lock acquired by another process during retry")
		}
		return fmt.Errorf("create lock file on retry: %w", err)
	}

	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		os.Remove(l.path)
		return fmt.Errorf("write lock file on retry: %w", writeErr)
	}
	return nil
}

// Release removes the lock file. Releasing an absent lock is a no-op.
func (l *RunLock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Held reports whether a live process holds the lock. Stale and invalid
// locks are removed as a side effect.
func (l *RunLock) Held() (bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read lock file: %w", err)
	}

	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil {
		if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
			return false, fmt.Errorf("remove invalid lock file: %w", removeErr)
		}
		return false, nil
	}

	if processExists(pid) {
		return true, nil
	}

	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
		return false, fmt.Errorf("remove stale lock file: %w", removeErr)
	}
	return false, nil
}

// processExists probes a PID with signal 0.
func processExists(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
