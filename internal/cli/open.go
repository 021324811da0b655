// Package cli — open.go implements the "treeport open" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/recent"
)

// NewOpenCommand creates the "open" cobra command.
func NewOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open [branch]",
		Short: "Attach to a worktree's multiplexer session",
		Long: `Open the multiplexer session for a worktree, creating the session if it
does not exist and recreating it if its previous instance exited.

With no branch argument, the most recently used worktree across all
projects is opened.

Examples:
  treeport open feature/auth
  treeport open`,

		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runOpen("", args[0])
			}
			return runOpenMostRecent()
		},
	}
}

// runOpen opens the session for branch. projectDir may be empty, in which
// case the project is resolved from the flag or working directory.
func runOpen(projectDir, branch string) error {
	if projectDir == "" {
		var err error
		projectDir, err = resolveProject()
		if err != nil {
			return err
		}
	}
	cfg, err := loadConfigForProject(projectDir)
	if err != nil {
		return err
	}

	logger := newLogger()
	return newManager(cfg, logger).Open(projectDir, branch)
}

// runOpenMostRecent resolves the newest recent-access entry and opens it.
// The recent store is global, so this works from any directory.
func runOpenMostRecent() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	entries, err := recent.NewRegistry(cfg.RecentFile(), cfg.RecentLimit).List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no recent worktrees", model.ErrNotFound)
	}
	return runOpen(entries[0].ProjectPath, entries[0].Branch)
}
