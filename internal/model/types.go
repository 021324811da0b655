package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Project is a registered repository root. Only the path is stored; validity
// (the path existing, being a git repository) is re-checked on each use, so a
// Project loaded from the registry may point at a directory that has since
// been moved or deleted.
type Project struct {
	// Path is the absolute path to the repository root.
	Path string `json:"path"`
}

// Name returns the project's display name, the base name of its path.
// It is also the prefix of the project's multiplexer session names.
func (p Project) Name() string {
	return filepath.Base(p.Path)
}

// Worktree is a secondary checkout of a Project at a specific branch,
// paired with an allocated port and an env file recording it.
type Worktree struct {
	// Project is the owning project.
	Project Project `json:"project"`

	// Branch is the git branch checked out in this worktree.
	Branch string `json:"branch"`

	// Dir is the absolute path to the worktree directory. Always strictly
	// under the project's worktrees subdirectory; the safety gate for
	// destructive operations depends on this.
	Dir string `json:"dir"`

	// Port is the allocated port, derived from the offset formula.
	Port int `json:"port"`

	// EnvFile is the path to the worktree's environment file. Its PORT line
	// is the allocator's ground truth for in-use offsets.
	EnvFile string `json:"envFile"`
}

// SessionState classifies a multiplexer session as reported by the
// multiplexer's own session listing. Sessions are reconciled, never stored.
type SessionState string

const (
	// SessionAbsent means the listing has no entry for the session.
	SessionAbsent SessionState = "absent"

	// SessionAlive means the session exists and is not marked exited.
	SessionAlive SessionState = "alive"

	// SessionExited means the session is still registered but its listing
	// entry carries the EXITED marker. It must be deleted and recreated,
	// never attached.
	SessionExited SessionState = "exited"
)

// String returns the string form of the state.
func (s SessionState) String() string {
	return string(s)
}

// RecentEntry is one line of the recent-access registry: a (project, branch)
// pair stamped with the time it was last opened or created.
type RecentEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	ProjectPath string    `json:"projectPath"`
	Branch      string    `json:"branch"`
}

// branchRegex accepts the branch names this tool is willing to manage.
// Git itself allows more, but slashes, dots and hyphens cover the naming
// schemes in practice, and the tighter set keeps worktree directory names
// and session identifiers unambiguous.
var branchRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidateBranch checks that a branch name is acceptable. Rejections are
// caller-correctable and reported with ErrValidation.
func ValidateBranch(branch string) error {
	if branch == "" {
		return fmt.Errorf("%w: branch name must not be empty", ErrValidation)
	}
	if strings.Contains(branch, "..") || strings.HasSuffix(branch, "/") {
		return fmt.Errorf("%w: invalid branch name %q", ErrValidation, branch)
	}
	if !branchRegex.MatchString(branch) {
		return fmt.Errorf("%w: invalid branch name %q: must start with an alphanumeric and contain only alphanumerics, dots, hyphens, underscores and slashes", ErrValidation, branch)
	}
	return nil
}

// SessionName derives the multiplexer session identifier for a (project,
// branch) pair: "<project-name>-<branch>". Multiplexers treat slashes as
// invalid in session names, so each one is folded to a double hyphen,
// which keeps feature/auth and feature-auth of the same project on
// distinct sessions.
func SessionName(projectName, branch string) string {
	return projectName + "-" + strings.ReplaceAll(branch, "/", "--")
}
