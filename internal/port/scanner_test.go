package port

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetForPort(t *testing.T) {
	s := NewScanner(3000, 10, ".env")

	cases := []struct {
		port   int
		offset int
		ok     bool
	}{
		{3010, 1, true},
		{3020, 2, true},
		{3990, 99, true},
		{3000, 0, false}, // base port itself is the main checkout, never an offset
		{3015, 0, false}, // off-step
		{2990, 0, false}, // below base
		{8080, 0, false},
	}
	for _, tc := range cases {
		offset, ok := s.OffsetForPort(tc.port)
		assert.Equal(t, tc.ok, ok, "port %d", tc.port)
		if tc.ok {
			assert.Equal(t, tc.offset, offset, "port %d", tc.port)
		}
	}
}

func TestPortForOffset(t *testing.T) {
	s := NewScanner(3000, 10, ".env")
	assert.Equal(t, 3010, s.PortForOffset(1))
	assert.Equal(t, 3030, s.PortForOffset(3))
}

func writeWorktreeEnv(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644))
}

func TestUsedOffsets(t *testing.T) {
	root := t.TempDir()
	s := NewScanner(3000, 10, ".env")

	writeWorktreeEnv(t, root, "feature-a", "PORT=3010\n")
	writeWorktreeEnv(t, root, "feature-b", "APP_ENV=dev\nPORT=3030\n")
	writeWorktreeEnv(t, root, "no-port", "APP_ENV=dev\n")
	writeWorktreeEnv(t, root, "odd-port", "PORT=4567\n")
	// A stray file (not a directory) one level down must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	used, err := s.UsedOffsets(root)
	require.NoError(t, err)

	assert.Equal(t, map[int]bool{1: true, 3: true}, used)
}

// TestUsedOffsets_NestedWorktrees: slash-named branches produce nested
// worktree directories (feature/auth lives two levels down). Their PORT
// lines count as in use all the same.
func TestUsedOffsets_NestedWorktrees(t *testing.T) {
	root := t.TempDir()
	s := NewScanner(3000, 10, ".env")

	writeWorktreeEnv(t, root, "main-wt", "PORT=3010\n")
	writeWorktreeEnv(t, root, filepath.Join("feature", "auth"), "PORT=3020\n")
	writeWorktreeEnv(t, root, filepath.Join("fix", "issue", "42"), "PORT=3040\n")

	used, err := s.UsedOffsets(root)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true, 4: true}, used)
}

// TestUsedOffsets_StopsAtEnvFile: once a directory carries an env file it
// is a worktree root, and env files inside its source tree belong to the
// checked-out project, not to this allocator.
func TestUsedOffsets_StopsAtEnvFile(t *testing.T) {
	root := t.TempDir()
	s := NewScanner(3000, 10, ".env")

	writeWorktreeEnv(t, root, "feature", "PORT=3010\n")
	writeWorktreeEnv(t, root, filepath.Join("feature", "subpkg"), "PORT=3020\n")

	used, err := s.UsedOffsets(root)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, used, "the nested source-tree env file is not scanned")
}

func TestUsedOffsets_MissingRoot(t *testing.T) {
	s := NewScanner(3000, 10, ".env")
	used, err := s.UsedOffsets(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, used, "a project with no worktrees dir has no used offsets")
}
