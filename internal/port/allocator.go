package port

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shinji-kodama/treeport/internal/model"
)

// Allocator reserves port offsets using exclusive lock files.
//
// The lock file for offset N is <locksDir>/N.lock. Creating it with
// O_CREAT|O_EXCL is the only mutual-exclusion primitive: two processes
// racing for the same offset can never both believe they hold it. The file
// content is the owner token, so a process can later prove (or fail to
// prove) ownership when releasing.
type Allocator struct {
	locksDir    string
	maxAttempts int
	scanner     *Scanner

	// owner identifies this process in lock files. hostname:pid alone is
	// not enough (PIDs recycle), so a per-allocator UUID is appended.
	owner string
}

// NewAllocator creates an Allocator writing locks under locksDir, giving
// up after maxAttempts offsets. The scanner must not be nil.
func NewAllocator(locksDir string, maxAttempts int, scanner *Scanner) *Allocator {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return &Allocator{
		locksDir:    locksDir,
		maxAttempts: maxAttempts,
		scanner:     scanner,
		owner:       fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

// Allocate reserves the lowest free offset for a new worktree under
// worktreeRoot and returns it. The acquired lock file deliberately
// outlives this call: it is the reservation itself and stays until the
// worktree is deleted or the stale sweep collects it.
//
// Two layers decide "free":
//  1. the env-file scan of existing worktrees (snapshot, taken once),
//  2. exclusive creation of the offset's lock file.
//
// An offset whose lock is acquired but which the scan reported in use is
// a reconciliation case (a worktree exists but its lock was lost), so
// the just-acquired lock is released and the search advances.
func (a *Allocator) Allocate(worktreeRoot string) (int, error) {
	used, err := a.scanner.UsedOffsets(worktreeRoot)
	if err != nil {
		return 0, fmt.Errorf("scanning worktree env files: %w", err)
	}

	if err := os.MkdirAll(a.locksDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating locks directory: %w", err)
	}

	for offset := 1; offset <= a.maxAttempts; offset++ {
		acquired, err := a.tryLock(offset)
		if err != nil {
			return 0, err
		}
		if !acquired {
			continue
		}
		if used[offset] {
			// A live worktree already records this port; the lock we just
			// took is not a valid reservation for us.
			if err := a.Release(offset); err != nil {
				return 0, err
			}
			continue
		}
		return offset, nil
	}

	return 0, fmt.Errorf("%w: no free offset within %d attempts", model.ErrAllocationExhausted, a.maxAttempts)
}

// Port returns the port number for an offset.
func (a *Allocator) Port(offset int) int {
	return a.scanner.PortForOffset(offset)
}

// OffsetForPort inverts the port formula, for callers that only have the
// port recorded in an env file.
func (a *Allocator) OffsetForPort(port int) (int, bool) {
	return a.scanner.OffsetForPort(port)
}

// Release deletes the lock file for offset, but only when this allocator
// owns it. Releasing an unheld or foreign lock is a no-op, and calling it
// twice is safe; it is used on allocation failure paths where the exact
// prior state is unknown.
func (a *Allocator) Release(offset int) error {
	path := a.lockPath(offset)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading lock %s: %w", path, err)
	}
	if strings.TrimSpace(string(content)) != a.owner {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock %s: %w", path, err)
	}
	return nil
}

// Discard deletes the lock file for offset regardless of owner. Used when
// the worktree holding the reservation has been deleted: the reservation's
// object is gone, so ownership proof no longer applies. Idempotent.
func (a *Allocator) Discard(offset int) error {
	if err := os.Remove(a.lockPath(offset)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discarding lock for offset %d: %w", offset, err)
	}
	return nil
}

// CleanupStale removes every lock file older than maxAge and returns how
// many were removed. This is crash recovery for processes that died
// between acquiring a lock and finishing the worktree creation that would
// legitimize it.
//
// Known hazard, tolerated by design: a long-lived worktree's lock can
// exceed maxAge and be swept here. That cannot double-book its port,
// since the allocator's env-file scan still reports the offset in use,
// but it does mean lock presence alone is not proof of a free offset.
func (a *Allocator) CleanupStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.locksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading locks directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(a.locksDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing stale lock %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// tryLock attempts exclusive creation of the offset's lock file and writes
// the owner token into it. Returns false without error when another
// process already holds the lock.
func (a *Allocator) tryLock(offset int) (bool, error) {
	f, err := os.OpenFile(a.lockPath(offset), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating lock for offset %d: %w", offset, err)
	}
	_, writeErr := f.WriteString(a.owner + "\n")
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		// A lock without a readable owner token could never be released;
		// take it back out rather than leave it wedged.
		_ = os.Remove(a.lockPath(offset))
		if writeErr != nil {
			return false, fmt.Errorf("writing lock for offset %d: %w", offset, writeErr)
		}
		return false, fmt.Errorf("closing lock for offset %d: %w", offset, closeErr)
	}
	return true, nil
}

func (a *Allocator) lockPath(offset int) string {
	return filepath.Join(a.locksDir, fmt.Sprintf("%d.lock", offset))
}
