package briefing

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//go:embed template.yaml
var template []byte

// Template returns the commented starter briefing. It parses as empty, so an
// untouched template leaves prompts unchanged.
func Template() []byte {
	return template
}

// WriteTemplate writes the starter briefing to path unless a file exists.
// It reports whether a file was written.
func WriteTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrap(err, "failed to create briefing directory")
	}
	if err := os.WriteFile(path, template, 0o644); err != nil {
		return false, errors.Wrap(err, "failed to write briefing template")
	}
	return true, nil
}
