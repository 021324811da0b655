package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"

	"github.com/shinji-kodama/treeport/internal/config"
	"github.com/shinji-kodama/treeport/internal/lifecycle"
	"github.com/shinji-kodama/treeport/internal/model"
	"github.com/shinji-kodama/treeport/internal/mux"
	"github.com/shinji-kodama/treeport/internal/port"
	"github.com/shinji-kodama/treeport/internal/project"
	"github.com/shinji-kodama/treeport/internal/recent"
	"github.com/shinji-kodama/treeport/internal/worktree"
)

// loadConfigForProject builds the effective configuration for a project:
// defaults, then the global file, then the project's own override file.
func loadConfigForProject(projectDir string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyProjectFile(projectDir); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return cfg, nil
}

// resolveProject determines the project root: the --project flag when
// given, otherwise the git toplevel of the working directory.
func resolveProject() (string, error) {
	if projectFlag != "" {
		abs, err := filepath.Abs(projectFlag)
		if err != nil {
			return "", fmt.Errorf("%w: resolving --project: %v", model.ErrValidation, err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := worktree.NewManager().GetRepoRoot(cwd)
	if err != nil {
		return "", fmt.Errorf("%w: not inside a git repository (use --project)", model.ErrValidation)
	}
	return root, nil
}

// newManager wires the lifecycle manager from the effective configuration.
// This is the single composition point; nothing else constructs the
// concrete dependencies.
func newManager(cfg *config.Config, logger *log.Logger) *lifecycle.Manager {
	scanner := port.NewScanner(cfg.BasePort, cfg.PortStep, cfg.EnvFileName)

	var confirm lifecycle.Confirmer = huhConfirmer{}
	if assumeYes {
		confirm = autoConfirmer{}
	}

	hooks := make([]lifecycle.SetupHook, 0, len(cfg.SetupHooks))
	for _, command := range cfg.SetupHooks {
		hooks = append(hooks, execHook{command: command})
	}

	return &lifecycle.Manager{
		Config:   cfg,
		Git:      worktree.NewManager(),
		Ports:    port.NewAllocator(cfg.LocksDir, cfg.MaxOffsets, scanner),
		Sessions: mux.NewClient(cfg.MuxBinary, cfg.MuxLayout, logger),
		Confirm:  confirm,
		Notify:   beeepNotifier{},
		Hooks:    hooks,
		Recents:  recent.NewRegistry(cfg.RecentFile(), cfg.RecentLimit),
		Projects: project.NewRegistry(cfg.ProjectsFile()),
		Log:      logger,
	}
}

// huhConfirmer asks through an interactive terminal prompt.
type huhConfirmer struct{}

func (huhConfirmer) Confirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Delete").
		Negative("Keep").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// autoConfirmer is substituted when --yes is set.
type autoConfirmer struct{}

func (autoConfirmer) Confirm(string) (bool, error) { return true, nil }

// beeepNotifier raises desktop notifications.
type beeepNotifier struct{}

func (beeepNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// execHook runs a configured setup command inside the new worktree with
// (worktreeDir, branch, projectDir) appended as arguments. The configured
// string may carry its own leading arguments, split on whitespace.
type execHook struct {
	command string
}

func (h execHook) Name() string { return h.command }

func (h execHook) Run(worktreeDir, branch, projectDir string) error {
	parts := strings.Fields(h.command)
	if len(parts) == 0 {
		return nil
	}
	args := append(parts[1:], worktreeDir, branch, projectDir)

	cmd := exec.Command(parts[0], args...)
	cmd.Dir = worktreeDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
