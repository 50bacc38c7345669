package main

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/executor"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

type CallConfig struct {
	InputFile   string
	Output      string
	Format      string
	Temperature *float64
	Set         []string
}

func NewCallConfig() *CallConfig {
	return &CallConfig{Format: string(presenter.FormatPlain)}
}

var callCmd = &cobra.Command{
	Use:   "call <skill> [input]",
	Short: "Execute a single skill",
	Long: `Execute a single skill. Input is taken from the positional argument, then
--input-file, then piped stdin.

Examples:
  skillet call summarizer "Long text to summarise"
  skillet call summarizer --input-file notes.md --output summary.md
  cat article.md | skillet call editor --format json
  skillet call vault-writer --set title="Weekly notes" --input-file notes.md`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var positional string
		if len(args) == 2 {
			positional = args[1]
		}
		return runCall(cmd, args[0], positional, getCallConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewCallConfig()
	flags := callCmd.Flags()
	flags.StringP("input-file", "i", defaults.InputFile, "Read input from a file")
	flags.StringP("output", "o", defaults.Output, "Write the result to a file instead of stdout")
	flags.StringP("format", "f", defaults.Format, "Output format (json, yaml, markdown, plain)")
	flags.Float64("temperature", 0, "Sampling temperature for prompt skills")
	flags.StringArray("set", nil, "Skill option as key=value (repeatable)")
	rootCmd.AddCommand(withTracing(callCmd))
}

func getCallConfigFromFlags(cmd *cobra.Command) *CallConfig {
	config := NewCallConfig()
	flags := cmd.Flags()
	if v, err := flags.GetString("input-file"); err == nil {
		config.InputFile = v
	}
	if v, err := flags.GetString("output"); err == nil {
		config.Output = v
	}
	if v, err := flags.GetString("format"); err == nil {
		config.Format = v
	}
	if flags.Changed("temperature") {
		if v, err := flags.GetFloat64("temperature"); err == nil {
			config.Temperature = &v
		}
	}
	if v, err := flags.GetStringArray("set"); err == nil {
		config.Set = v
	}
	return config
}

func runCall(cmd *cobra.Command, skill, positional string, config *CallConfig) error {
	format, err := presenter.ParseFormat(config.Format)
	if err != nil {
		return err
	}
	options, err := parseAssignments(config.Set)
	if err != nil {
		return err
	}

	input, err := newInputReader().Read(positional, config.InputFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	result, err := a.executor.Execute(ctx, skill, input, executor.Options{
		Temperature: config.Temperature,
		Config:      options,
	})
	if err != nil {
		return err
	}

	if config.Output == "" {
		return presenter.Render(cmd.OutOrStdout(), format, result)
	}
	if err := renderToFile(config.Output, format, result); err != nil {
		return err
	}
	presenter.Success("Wrote " + config.Output)
	return nil
}

func renderToFile(path string, format presenter.Format, v any) error {
	var buf bytes.Buffer
	if err := presenter.Render(&buf, format, v); err != nil {
		return err
	}
	return writeOutput(nil, path, buf.String())
}

// parseAssignments turns key=value pairs into a map. Values are decoded as
// YAML scalars so numbers and booleans keep their type.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("invalid assignment %q, expected key=value", pair)
		}
		out[key] = parseScalar(raw)
	}
	return out, nil
}

func parseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw
	}
	return v
}
