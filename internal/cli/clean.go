// Package cli — clean.go implements the "treeport clean" command.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/port"
)

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	var maxAge string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale port lock files",
		Long: `Remove port lock files older than the configured maximum age. These are
leftovers of interrupted create operations; locks backing live worktrees
are re-derived from their env files, so sweeping an old one is safe.

Examples:
  treeport clean
  treeport clean --max-age 30m`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(maxAge)
		},
	}

	cmd.Flags().StringVar(&maxAge, "max-age", "", "Lock age threshold, e.g. 30m or 2h (default: from config)")
	return cmd
}

func runClean(maxAgeFlag string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	age := cfg.LockMaxAge.Std()
	if maxAgeFlag != "" {
		parsed, err := time.ParseDuration(maxAgeFlag)
		if err != nil {
			return fmt.Errorf("%w: invalid --max-age %q: %v", model.ErrValidation, maxAgeFlag, err)
		}
		age = parsed
	}

	scanner := port.NewScanner(cfg.BasePort, cfg.PortStep, cfg.EnvFileName)
	allocator := port.NewAllocator(cfg.LocksDir, cfg.MaxOffsets, scanner)

	removed, err := allocator.CleanupStale(age)
	if err != nil {
		return err
	}

	if jsonOutput {
		fmt.Printf("{\n  \"removed\": %d\n}\n", removed)
	} else {
		fmt.Printf("Removed %d stale lock(s).\n", removed)
	}
	return nil
}
