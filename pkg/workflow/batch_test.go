package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchWorkflow = `name: batch
description: edit each file
io:
  input_dir: ./inputs
  output_dir: ./out
steps:
  - name: edit
    skill: editor
    input: ${input}
    output: edited
  - name: tag
    skill: tagger
    input: ${filename}
    output: tagged
`

func setupBatch(t *testing.T, content string, files map[string]string) *Definition {
	t.Helper()
	dir := t.TempDir()
	inputs := filepath.Join(dir, "inputs")
	require.NoError(t, os.MkdirAll(inputs, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(inputs, name), []byte(body), 0o644))
	}
	def, err := Load(writeWorkflow(t, dir, "batch.yaml", content))
	require.NoError(t, err)
	return def
}

func TestBatch(t *testing.T) {
	def := setupBatch(t, batchWorkflow, map[string]string{
		"b-second.txt": "two",
		"a-first.md":   "one",
		".hidden":      "skip me",
	})
	exec := &fakeExecutor{respond: func(skill, input string) any { return skill + ":" + input }}

	report, err := NewEngine(exec).Batch(context.Background(), def, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	calls := exec.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "one", calls[0].Input)
	assert.Equal(t, "a-first", calls[1].Input)
	assert.Equal(t, "two", calls[2].Input)
	assert.Equal(t, "b-second", calls[3].Input)

	out, err := os.ReadFile(filepath.Join(def.OutputDir(), "a-first.md"))
	require.NoError(t, err)
	assert.Equal(t, "tagger:a-first", string(out))
	assert.Equal(t, filepath.Join(def.OutputDir(), "a-first.md"), report.Items[0].OutputFile)
}

func TestBatchFreshContextPerFile(t *testing.T) {
	def := setupBatch(t, batchWorkflow, map[string]string{"a.txt": "1", "b.txt": "2"})
	exec := &fakeExecutor{}

	report, err := NewEngine(exec).Batch(context.Background(), def, map[string]any{"extra": "x"})
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	first := report.Items[0].Run.Context
	second := report.Items[1].Run.Context
	assert.Equal(t, "a", first[VarFilename])
	assert.Equal(t, "b", second[VarFilename])
	assert.Equal(t, "2", second[VarInput])
	assert.Equal(t, "x", second["extra"])
	assert.True(t, filepath.IsAbs(second[VarInputFile].(string)))
}

func TestBatchCountsFailures(t *testing.T) {
	def := setupBatch(t, batchWorkflow, map[string]string{"a.txt": "1", "b.txt": "2"})
	exec := &fakeExecutor{fail: map[string]error{"tagger": errBoom}}

	report, err := NewEngine(exec).Batch(context.Background(), def, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Contains(t, report.Items[0].Error, "boom")
}

func TestBatchInclude(t *testing.T) {
	content := `name: batch
description: edit markdown only
io:
  input_dir: ./inputs
  include: "*.md"
steps:
  - name: edit
    skill: editor
    input: ${input}
    output: edited
`
	def := setupBatch(t, content, map[string]string{"a.md": "1", "b.txt": "2"})
	exec := &fakeExecutor{}

	report, err := NewEngine(exec).Batch(context.Background(), def, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "1", exec.Calls()[0].Input)
}

func TestBatchStopsWhenCancelled(t *testing.T) {
	def := setupBatch(t, batchWorkflow, map[string]string{"a.txt": "1", "b.txt": "2"})
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{respond: func(skill, _ string) any {
		if skill == "tagger" {
			cancel()
		}
		return "ok"
	}}

	report, err := NewEngine(exec).Batch(ctx, def, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, exec.Calls(), 2)
}

func TestBatchRequiresInputDir(t *testing.T) {
	_, err := NewEngine(&fakeExecutor{}).Batch(context.Background(), mustParse(t, chainWorkflow), nil)
	assert.ErrorContains(t, err, "io.input_dir")
}
