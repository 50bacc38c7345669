package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// Variables bound for every batch and watch item.
const (
	VarInput     = "input"
	VarInputFile = "input_file"
	VarFilename  = "filename"
)

// ItemResult is the outcome of running the workflow on one input file.
type ItemResult struct {
	File       string `json:"file" yaml:"file"`
	OutputFile string `json:"output_file,omitempty" yaml:"output_file,omitempty"`
	Err        error  `json:"-" yaml:"-"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Run        *Run   `json:"-" yaml:"-"`
}

// BatchReport aggregates a batch run.
type BatchReport struct {
	Items     []ItemResult `json:"items" yaml:"items"`
	Succeeded int          `json:"succeeded" yaml:"succeeded"`
	Failed    int          `json:"failed" yaml:"failed"`
}

// Batch runs def once per input file in sorted order. Each run gets a fresh
// context of args plus the file variables. An interrupt stops before the
// next file and returns the partial report with ctx.Err().
func (e *Engine) Batch(ctx context.Context, def *Definition, args map[string]any) (*BatchReport, error) {
	dir := def.InputDir()
	if dir == "" {
		return nil, errors.Errorf("workflow '%s' has no io.input_dir configured", def.Name)
	}
	files, err := ListInputs(dir, include(def))
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(e.ProcessFile(ctx, def, file, args))
	}
	return report, nil
}

func (r *BatchReport) add(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Err != nil {
		r.Failed++
		return
	}
	r.Succeeded++
}

// ProcessFile runs def against one input file and writes the output file
// when io.output_dir is configured.
func (e *Engine) ProcessFile(ctx context.Context, def *Definition, file string, args map[string]any) ItemResult {
	item := ItemResult{File: file}
	log := logger.G(ctx).WithField("file", file)

	fail := func(err error) ItemResult {
		item.Err = err
		item.Error = err.Error()
		log.WithError(err).Warn("batch item failed")
		return item
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return fail(errors.Wrapf(err, "failed to read %s", file))
	}

	itemArgs := make(map[string]any, len(args)+3)
	for k, v := range args {
		itemArgs[k] = v
	}
	itemArgs[VarInput] = string(content)
	itemArgs[VarInputFile] = file
	itemArgs[VarFilename] = stem(file)

	run, err := e.Run(ctx, def, itemArgs)
	item.Run = run
	if err != nil {
		return fail(err)
	}

	if out := def.OutputDir(); out != "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fail(errors.Wrapf(err, "failed to create output directory %s", out))
		}
		path := filepath.Join(out, stem(file)+".md")
		if err := os.WriteFile(path, []byte(run.Text()), 0o644); err != nil {
			return fail(errors.Wrapf(err, "failed to write %s", path))
		}
		item.OutputFile = path
	}

	log.Info("batch item finished")
	return item
}

// ListInputs returns the non-hidden regular files of dir in sorted order,
// filtered by an optional doublestar pattern matched against file names.
func ListInputs(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read input directory %s", dir)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		if pattern != "" {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid include pattern %q", pattern)
			}
			if !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func include(def *Definition) string {
	if def.IO == nil {
		return ""
	}
	return def.IO.Include
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
