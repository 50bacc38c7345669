package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/workflow"
)

type RunConfig struct {
	Inputs    []string
	InputFile string
	Output    string
	Format    string
	DryRun    bool
	Batch     bool
	Watch     bool
	Interval  string
}

func NewRunConfig() *RunConfig {
	return &RunConfig{
		Format:   string(presenter.FormatPlain),
		Interval: strconv.Itoa(int(workflow.DefaultWatchInterval / time.Second)),
	}
}

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Execute a workflow",
	Long: `Execute a workflow by name or path. Steps run in order; each step's output is
bound to its output variable for the steps after it.

--input accepts key=value to bind a variable, or plain text which is bound
to ${input}. Without --input, piped stdin is bound to ${input}.

Examples:
  skillet run url-to-note --input url=https://example.com/post
  skillet run research-article --input topic="vector databases" --dry-run
  skillet run edit-drafts --batch
  skillet run edit-drafts --watch --interval 10s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args[0], getRunConfigFromFlags(cmd))
	},
}

func init() {
	defaults := NewRunConfig()
	flags := runCmd.Flags()
	flags.StringArray("input", nil, "Workflow input as key=value or text bound to ${input} (repeatable)")
	flags.StringP("input-file", "i", defaults.InputFile, "Bind the contents of a file to ${input}")
	flags.StringP("output", "o", defaults.Output, "Write the final output to a file instead of stdout")
	flags.StringP("format", "f", defaults.Format, "Output format (json, yaml, markdown, plain)")
	flags.Bool("dry-run", defaults.DryRun, "Preview steps and estimate cost without calling any skill")
	flags.Bool("batch", defaults.Batch, "Run once per file in io.input_dir")
	flags.Bool("watch", defaults.Watch, "Process new files in io.input_dir as they appear")
	flags.String("interval", defaults.Interval, "Polling interval for --watch in seconds, or a duration such as 1m")
	runCmd.MarkFlagsMutuallyExclusive("dry-run", "batch", "watch")
	rootCmd.AddCommand(withTracing(runCmd))
}

func getRunConfigFromFlags(cmd *cobra.Command) *RunConfig {
	config := NewRunConfig()
	flags := cmd.Flags()
	if v, err := flags.GetStringArray("input"); err == nil {
		config.Inputs = v
	}
	if v, err := flags.GetString("input-file"); err == nil {
		config.InputFile = v
	}
	if v, err := flags.GetString("output"); err == nil {
		config.Output = v
	}
	if v, err := flags.GetString("format"); err == nil {
		config.Format = v
	}
	if v, err := flags.GetBool("dry-run"); err == nil {
		config.DryRun = v
	}
	if v, err := flags.GetBool("batch"); err == nil {
		config.Batch = v
	}
	if v, err := flags.GetBool("watch"); err == nil {
		config.Watch = v
	}
	if v, err := flags.GetString("interval"); err == nil {
		config.Interval = v
	}
	return config
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseRunInputs binds key=value pairs as variables. Anything else is text
// for ${input}; several text values are joined by newlines.
func parseRunInputs(inputs []string) map[string]any {
	args := make(map[string]any)
	var text []string
	for _, in := range inputs {
		if key, value, ok := strings.Cut(in, "="); ok && identifier.MatchString(key) {
			args[key] = parseScalar(value)
			continue
		}
		text = append(text, in)
	}
	if len(text) > 0 {
		args[workflow.VarInput] = strings.Join(text, "\n")
	}
	return args
}

// bindWorkflowInput sets ${input} from --input-file, or from piped stdin when
// no --input was given and the workflow references ${input}. Batch and watch
// bind their own input per file.
func bindWorkflowInput(def *workflow.Definition, config *RunConfig, args map[string]any, r *inputReader) error {
	if _, ok := args[workflow.VarInput]; ok || config.Batch || config.Watch {
		return nil
	}
	if config.InputFile == "" && (len(config.Inputs) > 0 || !referencesInput(def)) {
		return nil
	}
	input, err := r.Read("", config.InputFile)
	switch {
	case err == nil:
		args[workflow.VarInput] = input
	case !errors.Is(err, ErrEmptyInput):
		return err
	}
	return nil
}

func referencesInput(def *workflow.Definition) bool {
	var texts []string
	for _, step := range def.Steps {
		texts = append(texts, step.Input)
	}
	for _, v := range def.Variables {
		if s, ok := v.(string); ok {
			texts = append(texts, s)
		}
	}
	for _, text := range texts {
		for _, ref := range workflow.References(text) {
			if ref == workflow.VarInput {
				return true
			}
		}
	}
	return false
}

func runWorkflow(cmd *cobra.Command, name string, config *RunConfig) error {
	format, err := presenter.ParseFormat(config.Format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}
	def, err := a.loadWorkflow(name)
	if err != nil {
		return err
	}
	ctx = logger.WithFields(ctx, map[string]any{"workflow": def.Name})

	args := parseRunInputs(config.Inputs)
	if err := bindWorkflowInput(def, config, args, newInputReader()); err != nil {
		return err
	}

	switch {
	case config.DryRun:
		provided := append(mapKeys(args), fileVariables(def)...)
		if err := a.validator.Check(ctx, def, provided...); err != nil {
			return err
		}
		est, err := a.engine.DryRun(def, args)
		if err != nil {
			return err
		}
		return presenter.Render(cmd.OutOrStdout(), format, est)

	case config.Batch:
		report, err := a.engine.Batch(ctx, def, args)
		if report != nil {
			for _, item := range report.Items {
				reportItem(item)
			}
			presenter.Summary(def.Name, report.Succeeded, report.Failed)
		}
		if err != nil {
			return err
		}
		if format != presenter.FormatPlain {
			if err := presenter.Render(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
		}
		if report.Failed > 0 {
			return errors.Errorf("%d of %d items failed", report.Failed, len(report.Items))
		}
		return nil

	case config.Watch:
		interval, err := parseInterval(config.Interval)
		if err != nil {
			return err
		}
		presenter.Info(fmt.Sprintf("Watching %s every %s (Ctrl+C to stop)", def.InputDir(), interval))
		return a.engine.Watch(ctx, def, workflow.WatchOptions{
			Interval: interval,
			Args:     args,
			OnItem:   reportItem,
		})
	}

	run, err := a.engine.Run(ctx, def, args)
	if err != nil {
		return err
	}
	if config.Output == "" {
		return presenter.Render(cmd.OutOrStdout(), format, run)
	}
	if err := renderToFile(config.Output, format, run); err != nil {
		return err
	}
	presenter.Success("Wrote " + config.Output)
	return nil
}

// parseInterval accepts whole seconds or a Go duration string.
func parseInterval(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, errors.Errorf("interval must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.Errorf("invalid interval %q", raw)
	}
	return d, nil
}

func reportItem(item workflow.ItemResult) {
	if item.Err != nil {
		presenter.Error(item.Err, item.File)
		return
	}
	msg := "Processed " + item.File
	if item.OutputFile != "" {
		msg += " -> " + item.OutputFile
	}
	presenter.Success(msg)
}

// fileVariables are bound per item in batch and watch mode.
func fileVariables(def *workflow.Definition) []string {
	if def.IO == nil || def.IO.InputDir == "" {
		return nil
	}
	return []string{workflow.VarInput, workflow.VarInputFile, workflow.VarFilename}
}

func mapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
