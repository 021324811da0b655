package port

import (
	"os"
	"path/filepath"

	"github.com/shinji-kodama/treeport/internal/envfile"
)

// Scanner discovers in-use port offsets by reading the env files of
// existing worktrees. The env file, not the OS socket table, is the ground
// truth here: a worktree's dev server may be stopped, but its port is
// still reserved for it.
type Scanner struct {
	basePort    int
	portStep    int
	envFileName string
}

// NewScanner creates a Scanner for the given port formula.
func NewScanner(basePort, portStep int, envFileName string) *Scanner {
	return &Scanner{basePort: basePort, portStep: portStep, envFileName: envFileName}
}

// UsedOffsets collects the offsets recorded in the env files of the
// worktrees under worktreeRoot. The result is a snapshot: it is not
// re-validated later, so allocation correctness rests on the lock step,
// with this scan as the reconciliation layer.
//
// Worktrees for slash-named branches nest (feature/auth lives at
// <root>/feature/auth), so the scan must descend: a directory without an
// env file may be a path segment rather than a worktree. Descent stops at
// the first env file found, which keeps the walk out of worktree source
// trees.
//
// A missing worktreeRoot means no worktrees and therefore no used offsets.
func (s *Scanner) UsedOffsets(worktreeRoot string) (map[int]bool, error) {
	used := make(map[int]bool)

	entries, err := os.ReadDir(worktreeRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return used, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := s.scanTree(filepath.Join(worktreeRoot, entry.Name()), used); err != nil {
			return nil, err
		}
	}
	return used, nil
}

// scanTree records the offset of the worktree rooted at dir, or recurses
// into subdirectories when dir carries no env file and is therefore an
// intermediate path segment of a nested branch name.
func (s *Scanner) scanTree(dir string, used map[int]bool) error {
	envPath := filepath.Join(dir, s.envFileName)
	if _, err := os.Stat(envPath); err == nil {
		if p, ok := envfile.ReadPort(envPath); ok {
			if offset, ok := s.OffsetForPort(p); ok {
				used[offset] = true
			}
		}
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := s.scanTree(filepath.Join(dir, entry.Name()), used); err != nil {
			return err
		}
	}
	return nil
}

// OffsetForPort inverts the port formula. Ports that do not land exactly
// on the formula (wrong step, offset < 1) belong to some other scheme and
// are ignored.
func (s *Scanner) OffsetForPort(port int) (int, bool) {
	delta := port - s.basePort
	if delta <= 0 || delta%s.portStep != 0 {
		return 0, false
	}
	return delta / s.portStep, true
}

// PortForOffset applies the port formula.
func (s *Scanner) PortForOffset(offset int) int {
	return s.basePort + offset*s.portStep
}
