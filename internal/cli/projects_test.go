// Package cli — projects_test.go exercises project registration through
// the command logic, with the state and config directories redirected
// into the test's temp space.
package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/project"
)

// isolateState points the XDG directories at temp space so tests never
// touch the real registries.
func isolateState(t *testing.T) string {
	t.Helper()
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return filepath.Join(state, "treeport", "projects")
}

// mkRepo creates a directory that passes the repository-root check.
func mkRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	return dir
}

// TestProjectsAdd_ExplicitPath: the positional argument is registered
// as-is, without consulting the working directory or the --project flag.
func TestProjectsAdd_ExplicitPath(t *testing.T) {
	store := isolateState(t)
	repo := mkRepo(t)

	require.NoError(t, runProjectsAdd(repo))

	paths, err := project.NewRegistry(store).List()
	require.NoError(t, err)
	assert.Equal(t, []string{repo}, paths)
}

func TestProjectsAdd_RejectsNonRepository(t *testing.T) {
	store := isolateState(t)

	err := runProjectsAdd(t.TempDir())
	assert.ErrorIs(t, err, model.ErrValidation)

	paths, listErr := project.NewRegistry(store).List()
	require.NoError(t, listErr)
	assert.Empty(t, paths, "a rejected path must not be registered")
}

func TestProjectsAdd_Idempotent(t *testing.T) {
	store := isolateState(t)
	repo := mkRepo(t)

	require.NoError(t, runProjectsAdd(repo))
	require.NoError(t, runProjectsAdd(repo))

	paths, err := project.NewRegistry(store).List()
	require.NoError(t, err)
	assert.Equal(t, []string{repo}, paths)
}
