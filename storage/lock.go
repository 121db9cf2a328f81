package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"askai/config"
)

// Lock file tuning. Writers hold the lock for one read-modify-write of the
// history file, so anything older than staleLockAge belongs to a dead process.
const (
	lockRetryInterval = 25 * time.Millisecond
	lockWaitTimeout   = 5 * time.Second
	staleLockAge      = 30 * time.Second
	lockWriteGrace    = time.Second
)

// ErrLocked is returned when another process keeps holding the history lock.
var ErrLocked = errors.New("history file is locked by another askai process")

// fileLock is a PID lock file next to the file it protects.
// Content: PID of the process holding the lock
type fileLock struct {
	path string
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// Acquire creates the lock file exclusively, waiting for other holders and
// removing stale or corrupt locks.
func (l *fileLock) Acquire() error {
	deadline := time.Now().Add(lockWaitTimeout)

	for {
		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil {
				return fmt.Errorf("failed to write lock file: %w", werr)
			}
			return cerr
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		if l.removeIfStale() {
			continue
		}

		if time.Now().After(deadline) {
			pid, _ := l.Holder()
			return fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release removes the lock file. A missing file is not an error.
func (l *fileLock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Holder returns the PID recorded in the lock file.
func (l *fileLock) Holder() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// removeIfStale deletes a lock older than staleLockAge, or one whose PID is
// still unreadable after lockWriteGrace. Returns true if the lock is gone.
func (l *fileLock) removeIfStale() bool {
	info, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		return true
	}
	if err != nil {
		return false
	}

	// A new holder writes its PID right after creating the file.
	age := time.Since(info.ModTime())
	pid, perr := l.Holder()
	stale := age > staleLockAge || (perr != nil && age > lockWriteGrace)
	if !stale {
		return false
	}

	// Move the lock aside first: if another process replaced it after the
	// Stat above, the file moved is not the one judged stale and goes back.
	aside := fmt.Sprintf("%s.stale.%d", l.path, os.Getpid())
	if err := os.Rename(l.path, aside); err != nil {
		return os.IsNotExist(err)
	}
	if moved, err := os.Stat(aside); err == nil && !os.SameFile(info, moved) {
		_ = os.Link(aside, l.path)
		_ = os.Remove(aside)
		return false
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Removing stale lock %s (pid=%d)", l.path, pid)
	}
	_ = os.Remove(aside)
	return true
}
