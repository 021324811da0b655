// Package cli — recent.go implements the "treeport recent" command.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/recent"
)

// NewRecentCommand creates the "recent" cobra command.
func NewRecentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently used worktrees",
		Long: `List the most recently created or opened worktrees, newest first.
Entries whose project directory no longer exists are hidden.

Examples:
  treeport recent
  treeport recent --json`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecent()
		},
	}
}

func runRecent() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	entries, err := recent.NewRegistry(cfg.RecentFile(), cfg.RecentLimit).List()
	if err != nil {
		return err
	}

	printRecentResult(entries)
	return nil
}

func printRecentResult(entries []model.RecentEntry) {
	if jsonOutput {
		type entryJSON struct {
			Project   string    `json:"project"`
			Branch    string    `json:"branch"`
			Timestamp time.Time `json:"timestamp"`
		}
		out := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryJSON{Project: e.ProjectPath, Branch: e.Branch, Timestamp: e.Timestamp})
		}
		data, _ := json.MarshalIndent(map[string]any{"recent": out}, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(entries) == 0 {
		fmt.Println("No recent worktrees.")
		return
	}

	fmt.Printf("%-20s %-25s %s\n", "PROJECT", "BRANCH", "LAST USED")
	for _, e := range entries {
		fmt.Printf("%-20s %-25s %s\n",
			filepath.Base(e.ProjectPath), e.Branch, humanizeAge(time.Since(e.Timestamp)))
	}
}

// humanizeAge renders a duration the way session listings do: the largest
// whole unit, no fractions.
func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
