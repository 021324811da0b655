// Package envfile reads and writes the per-worktree environment file.
//
// The format is plain KEY=VALUE lines. The file is ground truth for the
// port allocator: a worktree's PORT line is what marks its offset as in
// use, so writes here must never drop or reorder lines they do not own.
package envfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// File is an env file held in memory with its line order preserved.
// Comments and unrecognized lines pass through writes untouched.
type File struct {
	lines []string
}

// Load reads an env file. A missing file yields an empty File and
// os.IsNotExist error so callers can distinguish absent from unreadable.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data), nil
}

// Parse builds a File from raw bytes.
func Parse(data []byte) *File {
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return &File{}
	}
	return &File{lines: strings.Split(text, "\n")}
}

// Get returns the value for a key and whether it was present. The last
// occurrence wins, matching how shells source such files.
func (f *File) Get(key string) (string, bool) {
	value, found := "", false
	for _, line := range f.lines {
		k, v, ok := splitLine(line)
		if ok && k == key {
			value, found = v, true
		}
	}
	return value, found
}

// Set replaces the value of a key in place, or appends the key if absent.
func (f *File) Set(key, value string) {
	entry := key + "=" + value
	for i, line := range f.lines {
		if k, _, ok := splitLine(line); ok && k == key {
			f.lines[i] = entry
			return
		}
	}
	f.lines = append(f.lines, entry)
}

// Save writes the file with a trailing newline.
func (f *File) Save(path string) error {
	content := strings.Join(f.lines, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Port returns the PORT value, or ok=false if the line is missing or not
// an integer. Unparseable values are treated as absent rather than fatal:
// a hand-edited env file must not wedge the allocator scan.
func (f *File) Port() (int, bool) {
	raw, found := f.Get("PORT")
	if !found {
		return 0, false
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

// SetPort records a port number.
func (f *File) SetPort(port int) {
	f.Set("PORT", strconv.Itoa(port))
}

// ReadPort is the one-call form used by the allocator scan: it loads the
// env file at path and extracts PORT. ok=false covers a missing file, a
// missing PORT line and an unparseable value alike.
func ReadPort(path string) (int, bool) {
	f, err := Load(path)
	if err != nil {
		return 0, false
	}
	return f.Port()
}

// WriteNew creates an env file recording the given port, seeding it from
// templatePath when that file exists. Template lines other than PORT are
// carried over verbatim.
func WriteNew(path, templatePath string, port int) error {
	f := &File{}
	if templatePath != "" {
		if tmpl, err := Load(templatePath); err == nil {
			f = tmpl
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("reading env template %s: %w", templatePath, err)
		}
	}
	f.SetPort(port)
	return f.Save(path)
}

// splitLine parses KEY=VALUE, rejecting blanks and comment lines.
func splitLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(trimmed, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return strings.TrimSpace(key), value, true
}
