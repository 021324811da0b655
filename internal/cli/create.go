// Package cli — create.go implements the "treeport create" command.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/model"
)

// NewCreateCommand creates the "create" cobra command.
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <branch>",
		Short: "Create a worktree with an allocated port",
		Long: `Create a worktree for the branch under the project's worktrees directory.

An existing branch is checked out as-is; a missing one is created from the
current HEAD. The worktree gets a dev-server port that no other worktree
of any project on this machine is using, recorded in its env file, and the
configured setup hooks run inside the new directory.

Examples:
  treeport create feature/auth
  treeport create --project ~/src/myapp hotfix`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0])
		},
	}
}

func runCreate(branch string) error {
	projectDir, err := resolveProject()
	if err != nil {
		return err
	}
	cfg, err := loadConfigForProject(projectDir)
	if err != nil {
		return err
	}

	logger := newLogger()
	m := newManager(cfg, logger)

	wt, err := m.Create(projectDir, branch)
	if err != nil {
		return err
	}

	printCreateResult(wt)
	return nil
}

func printCreateResult(wt *model.Worktree) {
	if jsonOutput {
		obj := map[string]any{
			"branch":  wt.Branch,
			"dir":     wt.Dir,
			"port":    wt.Port,
			"envFile": wt.EnvFile,
			"session": model.SessionName(wt.Project.Name(), wt.Branch),
		}
		data, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Created worktree for %q\n", wt.Branch)
	fmt.Printf("  Path:  %s\n", wt.Dir)
	fmt.Printf("  Port:  %d (http://localhost:%d)\n", wt.Port, wt.Port)
	fmt.Printf("\nRun `treeport open %s` to start working.\n", wt.Branch)
}
