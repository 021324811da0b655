// Package recent maintains the bounded registry of most-recently-used
// (project, branch) pairs.
//
// The store is a plain-text file, one entry per line in the form
// timestamp|project_path|branch, newest first, at most N lines. Other
// tools read this file, so the format is part of the external interface.
// Every mutation is a full read-modify-write that lands via an atomic
// rename: concurrent writers may interleave, but a reader never sees a
// half-written store.
package recent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shinji-kodama/treeport/internal/model"
)

// Registry is the recent-access store at a fixed path with a fixed bound.
type Registry struct {
	path  string
	limit int

	// now is replaceable in tests for deterministic timestamps.
	now func() time.Time
}

// NewRegistry creates a Registry backed by the file at path, keeping at
// most limit entries.
func NewRegistry(path string, limit int) *Registry {
	return &Registry{path: path, limit: limit, now: time.Now}
}

// Record refreshes the entry for (projectPath, branch): any previous
// entry for the exact pair is dropped, a new one is stamped with the
// current time, and the store is truncated to the newest limit entries
// before being atomically replaced.
func (r *Registry) Record(projectPath, branch string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}

	entries = filterOut(entries, projectPath, branch)
	entries = append(entries, model.RecentEntry{
		Timestamp:   r.now(),
		ProjectPath: projectPath,
		Branch:      branch,
	})

	sortByRecency(entries)
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}
	return r.replace(entries)
}

// Remove drops the entry for (projectPath, branch). A missing store or a
// missing entry is a no-op, not an error.
func (r *Registry) Remove(projectPath, branch string) error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil
	}
	entries, err := r.load()
	if err != nil {
		return err
	}
	return r.replace(filterOut(entries, projectPath, branch))
}

// List returns entries newest first, skipping any whose project path no
// longer resolves to a directory. The skip happens at read time only;
// stale entries stay in storage and would reappear if the project came
// back. Recomputed fresh on every call.
func (r *Registry) List() ([]model.RecentEntry, error) {
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	sortByRecency(entries)

	live := entries[:0]
	for _, e := range entries {
		if info, err := os.Stat(e.ProjectPath); err == nil && info.IsDir() {
			live = append(live, e)
		}
	}
	return live, nil
}

// load reads and parses the store. Missing file means empty registry;
// malformed lines are skipped rather than poisoning every operation.
func (r *Registry) load() ([]model.RecentEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recent store: %w", err)
	}

	var entries []model.RecentEntry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if e, ok := parseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// replace writes the store atomically: the full content goes to a
// temporary file in the same directory, then a rename swaps it in. The
// rename is the atomicity boundary: a crash before it leaves the
// original untouched, a crash after it leaves the new version complete.
func (r *Registry) replace(entries []model.RecentEntry) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recent-*")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	tmpName := tmp.Name()

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(formatLine(e))
		b.WriteByte('\n')
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
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
		return fmt.Errorf("replacing recent store: %w", err)
	}
	return nil
}

func filterOut(entries []model.RecentEntry, projectPath, branch string) []model.RecentEntry {
	kept := entries[:0]
	for _, e := range entries {
		if e.ProjectPath == projectPath && e.Branch == branch {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func sortByRecency(entries []model.RecentEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// parseLine parses "timestamp|project_path|branch". Timestamps are Unix
// seconds, which sort numerically the same way they sort by recency.
func parseLine(line string) (model.RecentEntry, bool) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return model.RecentEntry{}, false
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return model.RecentEntry{}, false
	}
	return model.RecentEntry{
		Timestamp:   time.Unix(ts, 0),
		ProjectPath: parts[1],
		Branch:      parts[2],
	}, true
}

func formatLine(e model.RecentEntry) string {
	return fmt.Sprintf("%d|%s|%s", e.Timestamp.Unix(), e.ProjectPath, e.Branch)
}
