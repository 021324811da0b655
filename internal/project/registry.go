// Package project tracks every repository the tool has been used with.
//
// The store is a plain-text file with one absolute project path per
// line. Unlike the recent-access list it is unbounded and append-mostly;
// entries are never purged automatically, only filtered at read time.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Registry is the known-projects store at a fixed path.
type Registry struct {
	path string
}

// NewRegistry creates a Registry backed by the file at path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Add records projectPath if it is not already present. The rewrite is
// atomic so a concurrent reader never sees a truncated store.
func (r *Registry) Add(projectPath string) error {
	paths, err := r.List()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if p == projectPath {
			return nil
		}
	}
	return r.replace(append(paths, projectPath))
}

// List returns every registered path in file order. Missing store means
// no projects yet.
func (r *Registry) List() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading projects store: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// ListExisting returns registered paths that still resolve to a
// directory. Missing ones are skipped, never purged: a project on an
// unmounted volume would otherwise be forgotten permanently.
func (r *Registry) ListExisting() ([]string, error) {
	paths, err := r.List()
	if err != nil {
		return nil, err
	}

	existing := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			existing = append(existing, p)
		}
	}
	return existing, nil
}

func (r *Registry) replace(paths []string) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".projects-*")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	tmpName := tmp.Name()

	content := strings.Join(paths, "\n")
	if len(paths) > 0 {
		content += "\n"
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp store: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing projects store: %w", err)
	}
	return nil
}
