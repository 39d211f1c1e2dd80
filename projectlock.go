package storydaemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// lockInfo is the JSON body of <project_root>/.lock.
type lockInfo struct {
	PID       int       `json:"pid"`
	Acquired  time.Time `json:"acquired"`
	Host      string    `json:"host"`
}

// LockHeldError is returned when another live process already holds the
// project lock.
type LockHeldError struct {
	Path string
	Info lockInfo
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("storydaemon: project lock %s held by pid %d since %s", e.Path, e.Info.PID, e.Info.Acquired)
}

// ProjectLock represents a held cross-process lock on a project directory.
// Only one orchestrator may run ticks against a project at a time (spec
// §4.10.3, concurrent-tick safety).
type ProjectLock struct {
	path string
}

// AcquireProjectLock creates <projectRoot>/.lock exclusively, recording the
// current PID and timestamp. If an existing lock's PID is no longer
// running, it is treated as stale and broken automatically. Otherwise a
// *LockHeldError is returned.
func AcquireProjectLock(projectRoot string) (*ProjectLock, error) {
	path := filepath.Join(projectRoot, ".lock")

	if err := tryCreateLock(path); err == nil {
		return &ProjectLock{path: path}, nil
	} else if !os.IsExist(err) {
		return nil, &IOError{Op: "create lock " + path, Err: err}
	}

	existing, readErr := readLockInfo(path)
	if readErr != nil {
		// Unreadable/corrupt lock file: treat as stale and break it.
		if removeErr := os.Remove(path); removeErr != nil {
			return nil, &IOError{Op: "remove corrupt lock " + path, Err: removeErr}
		}
		return AcquireProjectLock(projectRoot)
	}

	if processAlive(existing.PID) {
		return nil, &LockHeldError{Path: path, Info: existing}
	}

	// Stale lock: the recorded PID is no longer running. Break it and
	// retry once.
	if err := os.Remove(path); err != nil {
		return nil, &IOError{Op: "remove stale lock " + path, Err: err}
	}
	if err := tryCreateLock(path); err != nil {
		return nil, &IOError{Op: "create lock " + path, Err: err}
	}
	return &ProjectLock{path: path}, nil
}

func tryCreateLock(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	host, _ := os.Hostname()
	info := lockInfo{PID: os.Getpid(), Acquired: time.Now(), Host: host}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return nil
}

func readLockInfo(path string) (lockInfo, error) {
	var info lockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, err
	}
	return info, nil
}

// processAlive reports whether pid refers to a still-running process,
// using signal 0 (no-op existence probe; sends nothing, just checks
// permission/existence).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Release removes the project lock. Safe to call once; a second call
// returns an *IOError wrapping the os.Remove error (the file is already
// gone).
func (l *ProjectLock) Release() error {
	if err := os.Remove(l.path); err != nil {
		return &IOError{Op: "release lock " + l.path, Err: err}
	}
	return nil
}
