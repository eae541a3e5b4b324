package runlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"photodesk/internal/logging"
)

// FileLock is an advisory flock on a host-local file.
type FileLock struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock
	now  func() time.Time
}

// NewFileLock returns a lock on path. The holder record lives at path+".holder".
func NewFileLock(path string, logger *slog.Logger) *FileLock {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileLock{path: path, logger: logger, now: time.Now}
}

func (l *FileLock) holderPath() string { return l.path + ".holder" }

// Acquire tries the flock without blocking.
func (l *FileLock) Acquire(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lock != nil {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	holder := newHolder(l.now())
	if err := os.WriteFile(l.holderPath(), []byte(holder.encode()+"\n"), 0o644); err != nil {
		l.logger.Warn("failed to write lock holder",
			logging.String("path", l.holderPath()),
			logging.Error(err),
		)
	}
	l.lock = fl
	return true, nil
}

// Release unlocks and removes the holder record.
func (l *FileLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lock == nil {
		return nil
	}
	if err := os.Remove(l.holderPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to remove lock holder", logging.String("path", l.holderPath()), logging.Error(err))
	}
	err := l.lock.Unlock()
	l.lock = nil
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Status probes the lock with a second flock handle.
func (l *FileLock) Status(ctx context.Context) (Status, error) {
	st := Status{Backend: "file"}

	l.mu.Lock()
	ours := l.lock != nil
	l.mu.Unlock()

	if !ours {
		if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		probe := flock.New(l.path)
		ok, err := probe.TryLock()
		if err != nil {
			return st, fmt.Errorf("probe lock: %w", err)
		}
		if ok {
			_ = probe.Unlock()
			return st, nil
		}
	}

	st.Held = true
	if data, err := os.ReadFile(l.holderPath()); err == nil {
		st.Holder = decodeHolder(string(data))
	}
	st.Alive = HolderAlive(st.Holder.PID)
	return st, nil
}

// HolderAlive reports whether a process with pid exists on this host.
func HolderAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
