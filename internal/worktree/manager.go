package worktree

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Info is one entry of `git worktree list --porcelain`: a block of
// key-value lines separated from the next block by a blank line.
type Info struct {
	// Path is the absolute path of the worktree directory.
	Path string

	// Branch is the full ref (e.g. "refs/heads/feature/auth"), empty when
	// the worktree is in detached HEAD state.
	Branch string

	// HEAD is the commit the worktree points at.
	HEAD string

	// IsBare marks the bare-repository entry.
	IsBare bool
}

// ShortBranch returns the branch without the refs/heads/ prefix.
func (i Info) ShortBranch() string {
	return strings.TrimPrefix(i.Branch, "refs/heads/")
}

// Manager runs git worktree operations. Stateless; the repository path is
// a parameter on every call so one Manager serves all projects.
type Manager struct{}

// NewManager creates a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add creates a worktree for branch at worktreePath. It attaches to the
// branch when it already exists; otherwise it falls back to creating the
// branch from the current HEAD with -b.
func (m *Manager) Add(repoPath, branch, worktreePath string) error {
	if m.BranchExists(repoPath, branch) {
		_, err := runGit(repoPath, "worktree", "add", worktreePath, branch)
		return err
	}
	_, err := runGit(repoPath, "worktree", "add", "-b", branch, worktreePath)
	return err
}

// List returns all worktrees registered for the repository.
func (m *Manager) List(repoPath string) ([]Info, error) {
	out, err := runGit(repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// FindByBranch resolves the worktree checked out at branch, or nil when
// no worktree has it. Resolution goes through git, never through path
// construction, so renamed or moved worktrees are still found.
func (m *Manager) FindByBranch(repoPath, branch string) (*Info, error) {
	infos, err := m.List(repoPath)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].ShortBranch() == branch && infos[i].Branch != "" {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// Remove deletes the worktree at worktreePath. force allows removal with
// uncommitted changes, which deletion always wants: the user already
// confirmed.
func (m *Manager) Remove(repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	_, err := runGit(repoPath, args...)
	return err
}

// Prune drops stale worktree administrative data. Used on the deletion
// fallback path before manually removing the directory.
func (m *Manager) Prune(repoPath string) error {
	_, err := runGit(repoPath, "worktree", "prune")
	return err
}

// BranchExists checks for a local branch by exit status of rev-parse.
func (m *Manager) BranchExists(repoPath, branch string) bool {
	_, err := runGit(repoPath, "rev-parse", "--verify", "refs/heads/"+branch)
	return err == nil
}

// GetRepoRoot returns the top-level directory of the working tree
// containing path.
func (m *Manager) GetRepoRoot(path string) (string, error) {
	out, err := runGit(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsRepoRoot reports whether path is the root of a primary git checkout
// (a .git directory, not the .git file a worktree carries).
func (m *Manager) IsRepoRoot(path string) bool {
	info, err := os.Lstat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// runGit executes git -C repoPath with the given arguments, returning
// stdout. Failures carry the trimmed stderr, which is where git puts the
// explanation.
func runGit(repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// parsePorcelain parses `git worktree list --porcelain` output. Blocks
// are separated by blank lines; within a block each line is a
// space-separated key and value, with standalone markers like "bare".
func parsePorcelain(output string) []Info {
	var infos []Info
	var current *Info

	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			if current != nil {
				infos = append(infos, *current)
				current = nil
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "worktree":
			current = &Info{Path: value}
		case "HEAD":
			if current != nil {
				current.HEAD = value
			}
		case "branch":
			if current != nil {
				current.Branch = value
			}
		case "bare":
			if current != nil {
				current.IsBare = true
			}
			// "detached" needs no handling: a detached worktree simply has
			// an empty Branch.
		}
	}
	if current != nil {
		infos = append(infos, *current)
	}
	return infos
}
