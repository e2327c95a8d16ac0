package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "sync.lock"

// SweepLock keeps two skb processes on one machine from sweeping at once.
type SweepLock struct {
	flock *flock.Flock
}

func NewSweepLock(stateDir string) *SweepLock {
	return &SweepLock{flock: flock.New(filepath.Join(stateDir, lockFileName))}
}

// Lock fails fast with ErrSyncAlreadyRunning instead of waiting.
func (l *SweepLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o755); err != nil {
		return fmt.Errorf("sync: create lock dir: %w", err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("sync: acquire lock: %w", err)
	}
	if !locked {
		return ErrSyncAlreadyRunning
	}
	return nil
}

// Unlock is a no-op unless this process holds the lock. The lock file stays
// on disk so every process contends on the same inode.
func (l *SweepLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("sync: release lock: %w", err)
	}
	return nil
}

func (l *SweepLock) Path() string {
	return l.flock.Path()
}
