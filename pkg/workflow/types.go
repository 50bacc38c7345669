// Package workflow validates and executes declarative multi-step skill
// workflows, including dry-run estimation, batch and watch modes.
package workflow

import (
	"path/filepath"
)

// Definition is a workflow file.
type Definition struct {
	Name        string         `json:"name" yaml:"name" jsonschema:"minLength=1,description=Workflow name"`
	Description string         `json:"description" yaml:"description" jsonschema:"description=One-line summary"`
	Variables   map[string]any `json:"variables,omitempty" yaml:"variables,omitempty" jsonschema:"description=Initial values; may reference other variables with ${name}"`
	IO          *IO            `json:"io,omitempty" yaml:"io,omitempty" jsonschema:"description=Input and output directories for batch and watch modes"`
	Steps       []Step         `json:"steps" yaml:"steps" jsonschema:"minItems=1"`

	path string
}

// Step is one skill invocation.
type Step struct {
	Name   string         `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Skill  string         `json:"skill" yaml:"skill" jsonschema:"minLength=1"`
	Input  string         `json:"input" yaml:"input"`
	Output string         `json:"output" yaml:"output" jsonschema:"minLength=1"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// IO configures batch and watch modes. Paths are relative to the workflow
// file.
type IO struct {
	InputDir  string `json:"input_dir,omitempty" yaml:"input_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Include   string `json:"include,omitempty" yaml:"include,omitempty" jsonschema:"description=Glob filter applied to input file names"`
}

// Path is the file the definition was loaded from, if any.
func (d *Definition) Path() string { return d.path }

// Dir is the directory relative IO paths are resolved against.
func (d *Definition) Dir() string {
	if d.path == "" {
		return "."
	}
	return filepath.Dir(d.path)
}

// InputDir returns the absolute input directory, or "" when not configured.
func (d *Definition) InputDir() string {
	if d.IO == nil || d.IO.InputDir == "" {
		return ""
	}
	return d.resolve(d.IO.InputDir)
}

// OutputDir returns the absolute output directory, or "" when not configured.
func (d *Definition) OutputDir() string {
	if d.IO == nil || d.IO.OutputDir == "" {
		return ""
	}
	return d.resolve(d.IO.OutputDir)
}

func (d *Definition) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(filepath.Join(d.Dir(), p))
	if err != nil {
		return filepath.Join(d.Dir(), p)
	}
	return abs
}

// Outputs returns the step output names in declaration order.
func (d *Definition) Outputs() []string {
	out := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		out = append(out, s.Output)
	}
	return out
}
