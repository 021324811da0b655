// Package config builds the explicit configuration object that every
// component constructor receives. There is no ambient process-wide state:
// the lock directory, state directory and port formula all travel through
// a *Config.
//
// Three layers, later ones winning:
//  1. compiled-in defaults (Default),
//  2. the global YAML file at $XDG_CONFIG_HOME/treeport/config.yml,
//  3. a per-project .treeport.jsonc override in the project root, parsed
//     as JSON-with-comments the same way devcontainer.json tooling does.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-project override file looked up in the
// project root. JSONC so it can carry comments.
const ProjectFileName = ".treeport.jsonc"

// Duration wraps time.Duration so config files can write "1h" or "30m".
type Duration time.Duration

// UnmarshalYAML parses a duration string from YAML.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON parses a duration string from JSON(C).
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config carries all tunables and directory locations.
type Config struct {
	// StateDir holds the shared mutable state: the projects list, the
	// recent-access store, and (by default) the locks directory.
	StateDir string `yaml:"stateDir"`

	// LocksDir holds the port-offset lock files. Defaults to
	// <StateDir>/locks. Shared across all projects on purpose: ports are a
	// host-wide resource, so the reservation namespace must be too.
	LocksDir string `yaml:"locksDir"`

	// WorktreesDir is the name of the subdirectory under each project root
	// where worktrees live. The deletion safety gate only accepts paths
	// under it.
	WorktreesDir string `yaml:"worktreesDir"`

	// EnvFileName is the per-worktree environment file name whose PORT line
	// is the allocator's ground truth.
	EnvFileName string `yaml:"envFileName"`

	// EnvTemplate, if present in the project root, is copied into new
	// worktrees with the PORT line overridden.
	EnvTemplate string `yaml:"envTemplate"`

	// BasePort, PortStep and MaxOffsets define the port formula
	// port = BasePort + offset*PortStep, offsets 1..MaxOffsets. Offset 0 is
	// never allocated so the main checkout keeps its conventional port.
	BasePort   int `yaml:"basePort"`
	PortStep   int `yaml:"portStep"`
	MaxOffsets int `yaml:"maxOffsets"`

	// RecentLimit bounds the recent-access registry.
	RecentLimit int `yaml:"recentLimit"`

	// LockMaxAge is the stale-lock sweep threshold.
	LockMaxAge Duration `yaml:"lockMaxAge"`

	// MuxBinary is the terminal multiplexer executable. MuxLayout, when
	// set, is passed through as a layout template on session creation;
	// its contents are never interpreted here.
	MuxBinary string `yaml:"muxBinary"`
	MuxLayout string `yaml:"muxLayout"`

	// SetupHooks are external programs run after worktree creation with
	// (worktreeDir, branch, projectDir) as arguments, in listed order.
	SetupHooks []string `yaml:"setupHooks"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		StateDir:     defaultStateDir(),
		WorktreesDir: ".worktrees",
		EnvFileName:  ".env",
		EnvTemplate:  ".env.template",
		BasePort:     3000,
		PortStep:     10,
		MaxOffsets:   100,
		RecentLimit:  3,
		LockMaxAge:   Duration(time.Hour),
		MuxBinary:    "zellij",
	}
}

// Load builds the effective configuration from defaults plus the global
// YAML file, if one exists. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path := globalConfigPath()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	cfg.finalize()
	return cfg, nil
}

// projectOverride mirrors the subset of Config a project may override.
// Pointer fields distinguish "absent" from zero values.
type projectOverride struct {
	WorktreesDir *string   `json:"worktreesDir"`
	EnvFileName  *string   `json:"envFileName"`
	EnvTemplate  *string   `json:"envTemplate"`
	BasePort     *int      `json:"basePort"`
	PortStep     *int      `json:"portStep"`
	MaxOffsets   *int      `json:"maxOffsets"`
	MuxBinary    *string   `json:"muxBinary"`
	MuxLayout    *string   `json:"muxLayout"`
	SetupHooks   *[]string `json:"setupHooks"`
}

// ApplyProjectFile overlays the project's .treeport.jsonc, if present.
// The file is JSONC: comments and trailing commas are stripped before
// unmarshalling, so it can be annotated like a devcontainer.json.
func (c *Config) ApplyProjectFile(projectDir string) error {
	path := filepath.Join(projectDir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var ov projectOverride
	if err := json.Unmarshal(jsonc.ToJSON(data), &ov); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if ov.WorktreesDir != nil {
		c.WorktreesDir = *ov.WorktreesDir
	}
	if ov.EnvFileName != nil {
		c.EnvFileName = *ov.EnvFileName
	}
	if ov.EnvTemplate != nil {
		c.EnvTemplate = *ov.EnvTemplate
	}
	if ov.BasePort != nil {
		c.BasePort = *ov.BasePort
	}
	if ov.PortStep != nil {
		c.PortStep = *ov.PortStep
	}
	if ov.MaxOffsets != nil {
		c.MaxOffsets = *ov.MaxOffsets
	}
	if ov.MuxBinary != nil {
		c.MuxBinary = *ov.MuxBinary
	}
	if ov.MuxLayout != nil {
		c.MuxLayout = *ov.MuxLayout
	}
	if ov.SetupHooks != nil {
		c.SetupHooks = *ov.SetupHooks
	}
	return nil
}

// finalize fills derived fields after all layers are merged.
func (c *Config) finalize() {
	if c.LocksDir == "" {
		c.LocksDir = filepath.Join(c.StateDir, "locks")
	}
}

// ProjectsFile is the path of the registered-projects list.
func (c *Config) ProjectsFile() string {
	return filepath.Join(c.StateDir, "projects")
}

// RecentFile is the path of the recent-access store.
func (c *Config) RecentFile() string {
	return filepath.Join(c.StateDir, "recent")
}

// WorktreeRoot returns the worktrees directory for a project root.
func (c *Config) WorktreeRoot(projectDir string) string {
	return filepath.Join(projectDir, c.WorktreesDir)
}

func globalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "treeport", "config.yml")
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "treeport")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "treeport")
	}
	return filepath.Join(home, ".local", "state", "treeport")
}
