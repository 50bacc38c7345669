package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/workflow"
)

// failingReader fails the test if stdin is touched.
type failingReader struct{ t *testing.T }

func (r failingReader) Read([]byte) (int, error) {
	r.t.Fatal("stdin must not be read")
	return 0, nil
}

func piped(s string) *inputReader {
	return &inputReader{stdin: strings.NewReader(s), terminal: func() bool { return false }}
}

func TestInputPositionalWinsWithoutReadingStdin(t *testing.T) {
	r := &inputReader{stdin: failingReader{t}, terminal: func() bool { return false }}

	input, err := r.Read("from arg", "ignored.md")
	require.NoError(t, err)
	assert.Equal(t, "from arg", input)
}

func TestInputFileBeforeStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.md")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	r := &inputReader{stdin: failingReader{t}, terminal: func() bool { return false }}
	input, err := r.Read("", path)
	require.NoError(t, err)
	assert.Equal(t, "from file", input)
}

func TestInputFileNotFound(t *testing.T) {
	_, err := piped("unused").Read("", "/no/such/file.md")

	var notFound *FileNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "/no/such/file.md", notFound.Path)
	assert.Equal(t, "--input-file", notFound.Source)
	assert.Contains(t, notFound.Hint(), "--input-file")
}

func TestInputEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	_, err := piped("").Read("", path)
	assert.ErrorContains(t, err, "is empty")
}

func TestInputPipedStdin(t *testing.T) {
	input, err := piped("from stdin\n").Read("", "")
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", input)
}

func TestInputTerminalStdinIsIgnored(t *testing.T) {
	r := &inputReader{stdin: failingReader{t}, terminal: func() bool { return true }}
	_, err := r.Read("", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestInputEmptyStdin(t *testing.T) {
	_, err := piped(" \n\t").Read("", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestWriteOutput(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeOutput(&sb, "", "hello"))
	assert.Equal(t, "hello", sb.String())

	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, writeOutput(nil, path, "saved"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", string(data))
}

func stepsWithInputs(inputs ...string) *workflow.Definition {
	def := &workflow.Definition{Name: "wf"}
	for i, in := range inputs {
		def.Steps = append(def.Steps, workflow.Step{Name: "s" + string(rune('a'+i)), Skill: "echo", Input: in, Output: "o" + string(rune('a'+i))})
	}
	return def
}

func TestBindWorkflowInputLeavesStdinAlone(t *testing.T) {
	tests := []struct {
		name   string
		def    *workflow.Definition
		config *RunConfig
	}{
		{"variables only", stepsWithInputs("${input}"), &RunConfig{Inputs: []string{"topic=bees"}}},
		{"no input reference", stepsWithInputs("${topic}"), &RunConfig{}},
		{"batch", stepsWithInputs("${input}"), &RunConfig{Batch: true}},
		{"watch", stepsWithInputs("${input}"), &RunConfig{Watch: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := parseRunInputs(tt.config.Inputs)
			r := &inputReader{stdin: failingReader{t}, terminal: func() bool { return false }}
			require.NoError(t, bindWorkflowInput(tt.def, tt.config, args, r))
			assert.NotContains(t, args, workflow.VarInput)
		})
	}
}

func TestBindWorkflowInputWithOpenPipe(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := &inputReader{stdin: pr, terminal: func() bool { return false }}

	done := make(chan error, 1)
	go func() {
		done <- bindWorkflowInput(stepsWithInputs("${topic}"), &RunConfig{Inputs: []string{"topic=x"}}, map[string]any{"topic": "x"}, r)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked reading an open stdin pipe")
	}
}

func TestBindWorkflowInputReadsStdinWhenReferenced(t *testing.T) {
	def := &workflow.Definition{
		Name:      "wf",
		Variables: map[string]any{"draft": "${input}"},
		Steps:     []workflow.Step{{Name: "edit", Skill: "editor", Input: "${draft}", Output: "edited"}},
	}
	args := map[string]any{}
	require.NoError(t, bindWorkflowInput(def, &RunConfig{}, args, piped("piped text")))
	assert.Equal(t, "piped text", args[workflow.VarInput])

	args = map[string]any{}
	require.NoError(t, bindWorkflowInput(def, &RunConfig{}, args, piped("  ")))
	assert.NotContains(t, args, workflow.VarInput)
}

func TestBindWorkflowInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.md")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	args := map[string]any{}
	r := &inputReader{stdin: failingReader{t}, terminal: func() bool { return false }}
	require.NoError(t, bindWorkflowInput(stepsWithInputs("${topic}"), &RunConfig{InputFile: path}, args, r))
	assert.Equal(t, "from file", args[workflow.VarInput])
}
