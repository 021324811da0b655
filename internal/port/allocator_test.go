package port

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/treeport/internal/model"
)

func newTestAllocator(t *testing.T) (*Allocator, string, string) {
	t.Helper()
	locksDir := filepath.Join(t.TempDir(), "locks")
	worktreeRoot := t.TempDir()
	scanner := NewScanner(3000, 10, ".env")
	return NewAllocator(locksDir, 100, scanner), locksDir, worktreeRoot
}

// TestAllocate_Sequential: three allocations against an empty worktrees
// directory yield offsets 1, 2, 3 (ports 3010, 3020, 3030). The lock
// files persist between calls, which is exactly what makes the second
// and third calls advance.
func TestAllocate_Sequential(t *testing.T) {
	a, _, root := newTestAllocator(t)

	for i, wantPort := range []int{3010, 3020, 3030} {
		offset, err := a.Allocate(root)
		require.NoError(t, err)
		assert.Equal(t, i+1, offset)
		assert.Equal(t, wantPort, a.Port(offset))
	}
}

// TestAllocate_SkipsEnvFileOffsets verifies the monotonic-lowest property:
// an offset recorded in an existing worktree's env file is skipped even
// though its lock file is gone (the reconciliation case).
func TestAllocate_SkipsEnvFileOffsets(t *testing.T) {
	a, locksDir, root := newTestAllocator(t)

	writeWorktreeEnv(t, root, "existing", "PORT=3010\n")

	offset, err := a.Allocate(root)
	require.NoError(t, err)
	assert.Equal(t, 2, offset, "offset 1 is in use via env file, lowest free is 2")

	// The lock briefly taken on offset 1 must have been released again.
	_, err = os.Stat(filepath.Join(locksDir, "1.lock"))
	assert.True(t, os.IsNotExist(err), "lock for in-use offset must not linger")
	// The real reservation stays.
	_, err = os.Stat(filepath.Join(locksDir, "2.lock"))
	assert.NoError(t, err)
}

// TestAllocate_SkipsNestedWorktreeOffsets covers the crash-recovery
// interplay for slash-named branches: the stale sweep has removed the
// lock of a long-lived nested worktree, so the env-file scan is the only
// thing standing between its port and a double allocation.
func TestAllocate_SkipsNestedWorktreeOffsets(t *testing.T) {
	a, _, root := newTestAllocator(t)

	writeWorktreeEnv(t, root, filepath.Join("feature", "auth"), "PORT=3010\n")

	offset, err := a.Allocate(root)
	require.NoError(t, err)
	assert.Equal(t, 2, offset, "offset 1 belongs to the nested worktree even without its lock")
}

// TestAllocate_Concurrent verifies the uniqueness property: concurrent
// allocators against the same lock directory never agree on an offset.
// Each goroutine gets its own Allocator, mirroring the real deployment
// where every invocation is an independent process.
func TestAllocate_Concurrent(t *testing.T) {
	locksDir := filepath.Join(t.TempDir(), "locks")
	root := t.TempDir()

	const n = 20
	results := make([]int, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := NewAllocator(locksDir, 100, NewScanner(3000, 10, ".env"))
			results[i], errs[i] = a.Allocate(root)
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i]], "offset %d allocated twice", results[i])
		seen[results[i]] = true
	}
	assert.Len(t, seen, n)
}

func TestAllocate_Exhausted(t *testing.T) {
	locksDir := filepath.Join(t.TempDir(), "locks")
	root := t.TempDir()
	a := NewAllocator(locksDir, 3, NewScanner(3000, 10, ".env"))

	for i := 0; i < 3; i++ {
		_, err := a.Allocate(root)
		require.NoError(t, err)
	}

	_, err := a.Allocate(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAllocationExhausted)
}

func TestRelease_OwnedLock(t *testing.T) {
	a, locksDir, root := newTestAllocator(t)

	offset, err := a.Allocate(root)
	require.NoError(t, err)

	require.NoError(t, a.Release(offset))
	_, statErr := os.Stat(filepath.Join(locksDir, "1.lock"))
	assert.True(t, os.IsNotExist(statErr))

	// Idempotent: a second release of the same offset is a no-op.
	assert.NoError(t, a.Release(offset))
}

func TestRelease_ForeignLockIsNoOp(t *testing.T) {
	a, locksDir, _ := newTestAllocator(t)

	// A lock held by some other process: different owner token.
	require.NoError(t, os.MkdirAll(locksDir, 0o755))
	foreign := filepath.Join(locksDir, "1.lock")
	require.NoError(t, os.WriteFile(foreign, []byte("otherhost:4242:abcd\n"), 0o644))

	require.NoError(t, a.Release(1))
	_, err := os.Stat(foreign)
	assert.NoError(t, err, "a lock this process does not own must survive Release")
}

func TestDiscard_RemovesRegardlessOfOwner(t *testing.T) {
	a, locksDir, _ := newTestAllocator(t)

	require.NoError(t, os.MkdirAll(locksDir, 0o755))
	foreign := filepath.Join(locksDir, "3.lock")
	require.NoError(t, os.WriteFile(foreign, []byte("otherhost:4242:abcd\n"), 0o644))

	require.NoError(t, a.Discard(3))
	_, err := os.Stat(foreign)
	assert.True(t, os.IsNotExist(err))

	// Idempotent on an already-missing lock.
	assert.NoError(t, a.Discard(3))
}

func TestCleanupStale(t *testing.T) {
	a, locksDir, root := newTestAllocator(t)

	_, err := a.Allocate(root)
	require.NoError(t, err)
	fresh := filepath.Join(locksDir, "1.lock")

	// Plant an old lock next to the fresh one.
	stale := filepath.Join(locksDir, "7.lock")
	require.NoError(t, os.WriteFile(stale, []byte("deadhost:1:xyz\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := a.CleanupStale(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale lock must be swept")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh lock must survive the sweep")
}

func TestCleanupStale_MissingDir(t *testing.T) {
	a := NewAllocator(filepath.Join(t.TempDir(), "never-created"), 100, NewScanner(3000, 10, ".env"))
	removed, err := a.CleanupStale(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
