package worktree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const porcelainSample = `worktree /home/dev/src/myapp
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /home/dev/src/myapp/.worktrees/feature/auth
HEAD 2222222222222222222222222222222222222222
branch refs/heads/feature/auth

worktree /home/dev/src/myapp/.worktrees/spike
HEAD 3333333333333333333333333333333333333333
detached
`

func TestParsePorcelain(t *testing.T) {
	infos := parsePorcelain(porcelainSample)
	require.Len(t, infos, 3)

	assert.Equal(t, "/home/dev/src/myapp", infos[0].Path)
	assert.Equal(t, "refs/heads/main", infos[0].Branch)
	assert.Equal(t, "main", infos[0].ShortBranch())

	assert.Equal(t, "/home/dev/src/myapp/.worktrees/feature/auth", infos[1].Path)
	assert.Equal(t, "feature/auth", infos[1].ShortBranch())

	assert.Equal(t, "", infos[2].Branch, "detached worktree has no branch")
	assert.False(t, infos[2].IsBare)
}

func TestParsePorcelain_Bare(t *testing.T) {
	infos := parsePorcelain("worktree /srv/repos/myapp.git\nbare\n")
	require.Len(t, infos, 1)
	assert.True(t, infos[0].IsBare)
}

func TestParsePorcelain_NoTrailingBlank(t *testing.T) {
	// Output without the final blank line must still yield the last block.
	infos := parsePorcelain("worktree /a\nbranch refs/heads/x")
	require.Len(t, infos, 1)
	assert.Equal(t, "/a", infos[0].Path)
	assert.Equal(t, "x", infos[0].ShortBranch())
}

func TestParsePorcelain_Empty(t *testing.T) {
	assert.Empty(t, parsePorcelain(""))
}

func TestIsRepoRoot(t *testing.T) {
	m := NewManager()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	assert.True(t, m.IsRepoRoot(root))

	// A worktree has a .git file, not a directory, so it is not a primary root.
	wt := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: /elsewhere\n"), 0o644))
	assert.False(t, m.IsRepoRoot(wt))

	assert.False(t, m.IsRepoRoot(t.TempDir()), "no .git at all")
}
