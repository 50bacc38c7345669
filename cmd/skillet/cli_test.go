package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

const statsWorkflow = `name: stats
description: Count the words of the input
steps:
  - name: count
    skill: text-stats
    input: ${input}
    output: stats
`

// execute runs the root command with args and resets every flag afterwards,
// since cobra keeps flag values between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	resetFlags(rootCmd)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// TestCLI drives the commands end to end without any LLM call. It is one
// test because the service graph is built once per process.
func TestCLI(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home")
	skillsDir := filepath.Join(root, "skills")
	workflowsDir := filepath.Join(root, "workflows")

	t.Setenv("SKILLET_PROJECT_ROOT", root)
	t.Setenv("SKILLET_HOME", home)
	t.Setenv("SKILLET_SKILLS_DIR", skillsDir)
	t.Setenv("SKILLET_WORKFLOWS_DIR", workflowsDir)
	t.Setenv("NO_COLOR", "1")

	require.NoError(t, os.MkdirAll(filepath.Join(skillsDir, "text-stats"), 0o755))
	content, err := skills.RenderSkillFile(skills.Metadata{Name: "text-stats", Description: "Count words and lines"}, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(skillsDir, "text-stats", "SKILL.md"), content, 0o644))
	require.NoError(t, os.MkdirAll(workflowsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "stats.yaml"), []byte(statsWorkflow), 0o644))

	presenter.SetQuiet(true)
	t.Cleanup(func() {
		presenter.SetQuiet(false)
		closeApp()
	})

	t.Run("init", func(t *testing.T) {
		_, err := execute(t, "init")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(home, "config.yaml"))
		assert.FileExists(t, filepath.Join(home, "master-briefing.yaml"))
		assert.FileExists(t, filepath.Join(home, "models.yaml"))
		assert.FileExists(t, filepath.Join(home, "workflows", "url-to-note.yaml"))
	})

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "list", "--format", "json")
		require.NoError(t, err)

		var listed []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, "text-stats", listed[0]["name"])
		assert.Equal(t, "code", listed[0]["kind"])
	})

	t.Run("show unknown skill suggests names", func(t *testing.T) {
		_, err := execute(t, "show", "text-stat")
		var notFound *skills.NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Contains(t, notFound.Suggestions, "text-stats")
	})

	t.Run("call code skill", func(t *testing.T) {
		out, err := execute(t, "call", "text-stats", "one two three", "--format", "json")
		require.NoError(t, err)

		var result struct {
			Output   map[string]any `json:"output"`
			Metadata map[string]any `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.EqualValues(t, 3, result.Output["words"])
		assert.Equal(t, "text-stats", result.Metadata["skill"])
	})

	t.Run("call writes output file", func(t *testing.T) {
		path := filepath.Join(root, "stats.yaml")
		_, err := execute(t, "call", "text-stats", "a b", "--output", path, "--format", "yaml")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "words: 2")
	})

	t.Run("workflow list", func(t *testing.T) {
		out, err := execute(t, "workflow", "list", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "stats"`)
		assert.Contains(t, out, `"name": "url-to-note"`)
	})

	t.Run("workflow validate", func(t *testing.T) {
		_, err := execute(t, "workflow", "validate", "stats", "--input", "input")
		require.NoError(t, err)

		_, err = execute(t, "workflow", "validate", "url-to-note")
		var invalid *workflow.ValidationError
		require.True(t, errors.As(err, &invalid))
		assert.Contains(t, invalid.Error(), "skill 'web-scraper' not found")
	})

	t.Run("dry run", func(t *testing.T) {
		out, err := execute(t, "run", "stats", "--input", "alpha beta", "--dry-run", "--format", "json")
		require.NoError(t, err)

		var est workflow.Estimate
		require.NoError(t, json.Unmarshal([]byte(out), &est))
		require.Len(t, est.Steps, 1)
		assert.Equal(t, 10, est.TotalChars)
		assert.Equal(t, 10/4+workflow.ResponseTokensPerStep, est.TotalTokens)
	})

	t.Run("run workflow", func(t *testing.T) {
		out, err := execute(t, "run", "stats", "--input", "alpha beta gamma", "--format", "json")
		require.NoError(t, err)

		var run struct {
			Context map[string]any `json:"context"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &run))
		stats, ok := run.Context["stats"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 3, stats["words"])
	})

	t.Run("run unknown workflow", func(t *testing.T) {
		_, err := execute(t, "run", "missing")
		assert.Error(t, err)
	})

	t.Run("history", func(t *testing.T) {
		out, err := execute(t, "history", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "text-stats"`)
		assert.Contains(t, out, `"name": "stats"`)
	})

	t.Run("config round trip", func(t *testing.T) {
		_, err := execute(t, "config", "set", "retry.attempts", "7")
		require.NoError(t, err)

		out, err := execute(t, "config", "get", "retry.attempts")
		require.NoError(t, err)
		assert.Equal(t, "7\n", out)

		_, err = execute(t, "config", "reset", "retry.attempts")
		require.NoError(t, err)

		out, err = execute(t, "config", "path")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)

		_, err = execute(t, "config", "set", "no.such.key", "1")
		assert.Error(t, err)
	})

	t.Run("discover query", func(t *testing.T) {
		out, err := execute(t, "discover", "--query", "count words", "--json")
		require.NoError(t, err)
		assert.Contains(t, out, "text-stats")
	})

	t.Run("validate skills", func(t *testing.T) {
		// web-scraper and vault-writer are registered without skill directories.
		out, err := execute(t, "validate", "--format", "json")
		assert.ErrorContains(t, err, "2 skill problem(s) found")
		assert.Contains(t, out, "code skill is registered but has no skill directory")
	})

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "version", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"version"`)
	})
}
