package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// AcquirePID creates a PID file at path with the current process PID.
// It fails if another live process already holds the lock. If the existing
// PID file points to a dead process, it is removed and re-acquired.
//
// The write is atomic: content is written to a temporary file in the same
// directory, then renamed into place.
func AcquirePID(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}

	existingPID, err := ReadPID(path)
	if err == nil && existingPID != os.Getpid() {
		if IsProcessAlive(existingPID) {
			return fmt.Errorf("pulse-bar already running (PID %d)", existingPID)
		}
		// Stale.
		os.Remove(path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write temp PID file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename PID file: %w", err)
	}

	return nil
}

// ReleasePID removes the PID file at path if it still names this process.
func ReleasePID(path string) error {
	pid, err := ReadPID(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID from the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("parse PID file: invalid pid %d", pid)
	}

	return pid, nil
}

// IsProcessAlive checks whether a process with the given PID exists by
// sending signal 0. EPERM means the process exists but belongs to someone
// else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// SignalPID sends sig to the process named in the PID file at path.
func SignalPID(path string, sig unix.Signal) (int, error) {
	pid, err := ReadPID(path)
	if err != nil {
		return 0, err
	}
	if err := unix.Kill(pid, sig); err != nil {
		return pid, fmt.Errorf("signal PID %d: %w", pid, err)
	}
	return pid, nil
}

// PIDFile publishes the daemon's PID at Path so external tools can send it
// refresh signals. It satisfies refresh.Publisher.
type PIDFile struct {
	Path string
}

// Publish acquires the PID file.
func (p PIDFile) Publish() error { return AcquirePID(p.Path) }

// Withdraw releases the PID file.
func (p PIDFile) Withdraw() error { return ReleasePID(p.Path) }
