// Package cli implements the cobra-based commands for treeport.
//
// Each subcommand (create, open, remove, recent, projects, clean) lives in
// its own file. This file holds the root command, the global flags, error
// printing and the exit-code mapping. Only Execute terminates the process;
// everything below it returns errors.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/model"
)

// Global flag variables bound to persistent flags on the root command, so
// they apply to every subcommand.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose enables debug-level logging on stderr.
	verbose bool

	// assumeYes answers every confirmation prompt with yes. For scripts.
	assumeYes bool

	// projectFlag overrides project detection from the working directory.
	projectFlag string
)

// Version, Commit and Date are injected at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The root
// itself performs no action; functionality lives in the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treeport",
		Short: "Git worktree environments with isolated ports and sessions",
		Long: `treeport manages one isolated development environment per Git branch:
a worktree under the project's worktrees directory, a dev-server port that
never collides with other worktrees, and a terminal multiplexer session.`,

		// Errors are printed by Execute in the chosen format; cobra's own
		// usage/error output would duplicate that.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to all prompts")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "Project root (default: detected from the working directory)")

	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewOpenCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewRecentCommand())
	rootCmd.AddCommand(NewProjectsCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and exits the process with the code the
// error taxonomy assigns. This is the only place that calls os.Exit.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(int(model.ExitCodeFor(err)))
	}
}

// newLogger builds the stderr logger used across a command invocation.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// printError writes an error to stderr in the selected format. Errors go
// to stderr even in JSON mode; stdout carries only successful output.
func printError(err error) {
	if jsonOutput {
		obj := map[string]any{
			"error": map[string]any{
				"message": err.Error(),
				"code":    int(model.ExitCodeFor(err)),
			},
		}
		data, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
