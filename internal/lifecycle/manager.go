package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/envfile"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/worktree"
)

// Git is the subset of worktree.Manager the flows need.
type Git interface {
	Add(repoPath, branch, worktreePath string) error
	FindByBranch(repoPath, branch string) (*worktree.Info, error)
	Remove(repoPath, worktreePath string, force bool) error
	Prune(repoPath string) error
}

// Ports is the allocation surface of port.Allocator.
type Ports interface {
	Allocate(worktreeRoot string) (int, error)
	Release(offset int) error
	Discard(offset int) error
	Port(offset int) int
	OffsetForPort(port int) (int, bool)
}

// Sessions drives the terminal multiplexer.
type Sessions interface {
	Reconcile(name, workDir string) error
	Kill(name string) error
}

// Confirmer asks the user a yes/no question before destructive work.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Notifier raises a desktop notification. Failures are logged, never
// propagated: a notification is decoration on an already-finished flow.
type Notifier interface {
	Notify(title, message string) error
}

// SetupHook is a post-creation step run inside a new worktree.
type SetupHook interface {
	Name() string
	Run(worktreeDir, branch, projectDir string) error
}

// Recents is the recent-access registry surface.
type Recents interface {
	Record(projectPath, branch string) error
	Remove(projectPath, branch string) error
}

// Projects is the known-projects registry surface.
type Projects interface {
	Add(projectPath string) error
}

// Manager wires the flows together. Callers fill every field; the CLI
// layer does this once per invocation from the loaded configuration.
type Manager struct {
	Config   *config.Config
	Git      Git
	Ports    Ports
	Sessions Sessions
	Confirm  Confirmer
	Notify   Notifier
	Hooks    []SetupHook
	Recents  Recents
	Projects Projects
	Log      *log.Logger
}

// Create makes a worktree for branch under the project's worktrees
// directory, allocates a port, writes the env file and runs setup hooks.
//
// Hook failures and registry failures are logged but do not fail the
// flow: by then the worktree exists and is usable, and reporting it as
// failed would invite a second create against an occupied branch.
func (m *Manager) Create(projectDir, branch string) (*model.Worktree, error) {
	if err := model.ValidateBranch(branch); err != nil {
		return nil, err
	}

	existing, err := m.Git.FindByBranch(projectDir, branch)
	if err != nil {
		return nil, fmt.Errorf("%w: listing worktrees: %v", model.ErrCreationFailed, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: branch %s is already checked out at %s", model.ErrAlreadyExists, branch, existing.Path)
	}

	worktreeRoot := m.Config.WorktreeRoot(projectDir)
	targetDir := filepath.Join(worktreeRoot, filepath.FromSlash(branch))
	if _, err := os.Stat(targetDir); err == nil {
		return nil, fmt.Errorf("%w: directory %s already exists", model.ErrAlreadyExists, targetDir)
	}

	if err := m.Git.Add(projectDir, branch, targetDir); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCreationFailed, err)
	}

	// Trust but verify: git exiting zero is not proof the worktree is
	// registered at the branch we asked for.
	created, err := m.Git.FindByBranch(projectDir, branch)
	if err != nil || created == nil {
		return nil, fmt.Errorf("%w: worktree for %s not found after git add", model.ErrCreationFailed, branch)
	}

	offset, err := m.Ports.Allocate(worktreeRoot)
	if err != nil {
		return nil, err
	}
	portNum := m.Ports.Port(offset)

	envPath := filepath.Join(created.Path, m.Config.EnvFileName)
	templatePath := filepath.Join(projectDir, m.Config.EnvTemplate)
	if err := envfile.WriteNew(envPath, templatePath, portNum); err != nil {
		// Without the env file the reservation has no object; hand the
		// offset back rather than leak it until the stale sweep.
		if relErr := m.Ports.Release(offset); relErr != nil {
			m.Log.Warn("releasing offset after env write failure", "offset", offset, "err", relErr)
		}
		return nil, fmt.Errorf("%w: writing %s: %v", model.ErrCreationFailed, envPath, err)
	}

	wt := &model.Worktree{
		Project: model.Project{Path: projectDir},
		Branch:  branch,
		Dir:     created.Path,
		Port:    portNum,
		EnvFile: envPath,
	}

	for _, hook := range m.Hooks {
		m.Log.Debug("running setup hook", "hook", hook.Name(), "dir", wt.Dir)
		if err := hook.Run(wt.Dir, branch, projectDir); err != nil {
			m.Log.Warn("setup hook failed", "hook", hook.Name(), "err", err)
		}
	}

	if err := m.Projects.Add(projectDir); err != nil {
		m.Log.Warn("registering project", "err", err)
	}
	if err := m.Recents.Record(projectDir, branch); err != nil {
		m.Log.Warn("recording recent access", "err", err)
	}

	if m.Notify != nil {
		if err := m.Notify.Notify("Worktree created", fmt.Sprintf("%s on port %d", branch, portNum)); err != nil {
			m.Log.Debug("notification failed", "err", err)
		}
	}
	return wt, nil
}

// Open attaches the user to the worktree's multiplexer session, creating
// or recreating the session as needed, and refreshes the recent-access
// entry once the session ends.
func (m *Manager) Open(projectDir, branch string) error {
	wt, err := m.Git.FindByBranch(projectDir, branch)
	if err != nil {
		return fmt.Errorf("listing worktrees: %w", err)
	}
	if wt == nil {
		return fmt.Errorf("%w: no worktree for branch %s", model.ErrNotFound, branch)
	}

	session := model.SessionName(model.Project{Path: projectDir}.Name(), branch)
	if err := m.Sessions.Reconcile(session, wt.Path); err != nil {
		return err
	}

	if err := m.Recents.Record(projectDir, branch); err != nil {
		m.Log.Warn("recording recent access", "err", err)
	}
	return nil
}

// Delete tears down the worktree for branch: session, directory, port
// reservation and recent-access entry, in that order.
//
// The safety gate runs first. A worktree whose directory is not strictly
// under the project's worktrees subdirectory is never deleted, whatever
// the user answers; the confirmation prompt is only shown for targets
// that already passed the gate.
func (m *Manager) Delete(projectDir, branch string) error {
	wt, err := m.Git.FindByBranch(projectDir, branch)
	if err != nil {
		return fmt.Errorf("listing worktrees: %w", err)
	}
	if wt == nil {
		return fmt.Errorf("%w: no worktree for branch %s", model.ErrNotFound, branch)
	}

	worktreeRoot := m.Config.WorktreeRoot(projectDir)
	if !isUnder(worktreeRoot, wt.Path) {
		return fmt.Errorf("%w: %s is outside %s", model.ErrUnsafeLocation, wt.Path, worktreeRoot)
	}

	ok, err := m.Confirm.Confirm(fmt.Sprintf("Delete worktree %s (%s)?", branch, wt.Path))
	if err != nil {
		return fmt.Errorf("confirmation prompt: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: deletion of %s declined", model.ErrCancelled, branch)
	}

	// The env file dies with the directory; read the port before anything
	// destructive so the lock can still be found afterwards.
	portNum, havePort := envfile.ReadPort(filepath.Join(wt.Path, m.Config.EnvFileName))

	session := model.SessionName(model.Project{Path: projectDir}.Name(), branch)
	if err := m.Sessions.Kill(session); err != nil {
		m.Log.Warn("session teardown failed", "session", session, "err", err)
	}

	if err := m.Git.Remove(projectDir, wt.Path, true); err != nil {
		m.Log.Warn("git worktree remove failed, falling back to prune", "err", err)
		if err := m.Git.Prune(projectDir); err != nil {
			m.Log.Warn("git worktree prune failed", "err", err)
		}
		if err := os.RemoveAll(wt.Path); err != nil {
			return fmt.Errorf("%w: removing %s: %v", model.ErrDeletionFailed, wt.Path, err)
		}
	}
	if _, err := os.Stat(wt.Path); err == nil {
		return fmt.Errorf("%w: %s still exists", model.ErrDeletionFailed, wt.Path)
	}

	if havePort {
		if offset, ok := m.Ports.OffsetForPort(portNum); ok {
			if err := m.Ports.Discard(offset); err != nil {
				m.Log.Warn("discarding port lock", "offset", offset, "err", err)
			}
		}
	}

	if err := m.Recents.Remove(projectDir, branch); err != nil {
		m.Log.Warn("removing recent entry", "err", err)
	}

	if m.Notify != nil {
		if err := m.Notify.Notify("Worktree deleted", branch); err != nil {
			m.Log.Debug("notification failed", "err", err)
		}
	}
	return nil
}

// isUnder reports whether path lies strictly under root, lexically. The
// check is deliberately on the path strings, not the filesystem: a
// symlink pointing elsewhere must not widen what deletion can reach.
func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
