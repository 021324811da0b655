// Package cli — projects.go implements the "treeport projects" commands.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/project"
	"github.com/shinji-kodama/treeport/internal/worktree"
)

// NewProjectsCommand creates the "projects" cobra command with its
// subcommands. Running it bare lists the registered projects.
func NewProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List registered projects",
		Long: `List every project this tool has created a worktree in. Projects whose
directory is currently missing are hidden but stay registered.

Examples:
  treeport projects
  treeport projects add ~/src/myapp`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsList()
		},
	}

	cmd.AddCommand(newProjectsAddCommand())
	return cmd
}

func newProjectsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add [path]",
		Short: "Register a project without creating a worktree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runProjectsAdd(path)
		},
	}
}

func runProjectsList() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	paths, err := project.NewRegistry(cfg.ProjectsFile()).ListExisting()
	if err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{"projects": append([]string{}, paths...)}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(paths) == 0 {
		fmt.Println("No registered projects.")
		return nil
	}
	for _, p := range paths {
		fmt.Printf("%-20s %s\n", filepath.Base(p), p)
	}
	return nil
}

// runProjectsAdd registers path, falling back to flag or working-directory
// resolution when the positional argument was omitted.
func runProjectsAdd(path string) error {
	var projectDir string
	var err error
	if path != "" {
		projectDir, err = filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("%w: resolving %s: %v", model.ErrValidation, path, err)
		}
	} else {
		projectDir, err = resolveProject()
		if err != nil {
			return err
		}
	}
	if !worktree.NewManager().IsRepoRoot(projectDir) {
		return fmt.Errorf("%w: %s is not a git repository root", model.ErrValidation, projectDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := project.NewRegistry(cfg.ProjectsFile()).Add(projectDir); err != nil {
		return err
	}
	if !jsonOutput {
		fmt.Printf("Registered %s\n", projectDir)
	}
	return nil
}
