package workflow

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var workflowExts = []string{".yaml", ".yml"}

// Entry is a discovered workflow file.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Path        string `json:"path" yaml:"path"`
}

// Finder locates workflow files across directories; earlier directories take
// precedence when names collide.
type Finder struct {
	dirs []string
}

// NewFinder searches dirs in order, typically the project workflows
// directory followed by the user one.
func NewFinder(dirs ...string) *Finder {
	return &Finder{dirs: dirs}
}

// Dirs returns the search path.
func (f *Finder) Dirs() []string { return f.dirs }

// Find resolves name to a workflow file. name may be a path to an existing
// file, or a workflow file name with or without extension.
func (f *Finder) Find(name string) (string, error) {
	if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
		return name, nil
	}

	candidates := []string{name}
	if !hasWorkflowExt(name) {
		candidates = nil
		for _, ext := range workflowExts {
			candidates = append(candidates, name+ext)
		}
	}

	for _, dir := range f.dirs {
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}
	return "", errors.Errorf("workflow '%s' not found in %s", name, strings.Join(f.dirs, ", "))
}

// List returns every workflow file, sorted by name. Descriptions are read on
// a best-effort basis.
func (f *Finder) List() []Entry {
	seen := make(map[string]bool)
	var entries []Entry
	for _, dir := range f.dirs {
		items, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, item := range items {
			if item.IsDir() || !hasWorkflowExt(item.Name()) {
				continue
			}
			name := strings.TrimSuffix(item.Name(), filepath.Ext(item.Name()))
			if seen[name] {
				continue
			}
			seen[name] = true
			path := filepath.Join(dir, item.Name())
			entries = append(entries, Entry{Name: name, Description: readDescription(path), Path: path})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func hasWorkflowExt(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range workflowExts {
		if ext == e {
			return true
		}
	}
	return false
}

func readDescription(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var head struct {
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Description
}
