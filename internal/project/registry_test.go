package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_DeduplicatesAndPreservesOrder(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "projects"))

	require.NoError(t, r.Add("/src/alpha"))
	require.NoError(t, r.Add("/src/beta"))
	require.NoError(t, r.Add("/src/alpha"))

	paths, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/alpha", "/src/beta"}, paths)
}

func TestList_MissingStoreIsEmpty(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "projects"))
	paths, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// TestListExisting_FiltersWithoutPurging removes one project directory
// and expects it filtered from ListExisting but still present in the
// store, so it comes back if the directory reappears.
func TestListExisting_FiltersWithoutPurging(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "projects"))
	alive := t.TempDir()
	gone := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.MkdirAll(gone, 0o755))

	require.NoError(t, r.Add(alive))
	require.NoError(t, r.Add(gone))
	require.NoError(t, os.RemoveAll(gone))

	existing, err := r.ListExisting()
	require.NoError(t, err)
	assert.Equal(t, []string{alive}, existing)

	all, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{alive, gone}, all, "missing projects stay registered")
}

func TestStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects")
	r := NewRegistry(path)

	require.NoError(t, r.Add("/src/alpha"))
	require.NoError(t, r.Add("/src/beta"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/src/alpha\n/src/beta\n", string(data))
}
