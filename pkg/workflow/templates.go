package workflow

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Templates returns the names of the built-in workflow templates.
func Templates() []string {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// InstallTemplates copies the built-in templates into dir. Existing files are
// left untouched unless overwrite is set. It returns the paths written.
func InstallTemplates(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}

	var written []string
	for _, name := range Templates() {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil && !overwrite {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return written, errors.Wrapf(err, "failed to read template %s", name)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", dest)
		}
		written = append(written, dest)
	}
	return written, nil
}
