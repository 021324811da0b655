// Package cli — remove.go implements the "treeport remove" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the "remove" cobra command.
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <branch>",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a worktree and free its port",
		Long: `Delete the worktree for the branch after confirmation: its multiplexer
session is killed, the directory removed, the port reservation freed and
the recent-access entry dropped.

Only directories under the project's worktrees directory are ever
deleted. A worktree living anywhere else is refused outright; there is no
flag to override that.

Examples:
  treeport remove feature/auth
  treeport remove --yes stale-branch`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}
}

func runRemove(branch string) error {
	projectDir, err := resolveProject()
	if err != nil {
		return err
	}
	cfg, err := loadConfigForProject(projectDir)
	if err != nil {
		return err
	}

	logger := newLogger()
	if err := newManager(cfg, logger).Delete(projectDir, branch); err != nil {
		return err
	}

	if jsonOutput {
		fmt.Printf("{\n  \"deleted\": %q\n}\n", branch)
	} else {
		fmt.Printf("Deleted worktree for %q\n", branch)
	}
	return nil
}
