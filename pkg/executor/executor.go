// Package executor runs a single skill invocation and wraps the outcome in a
// uniform result envelope.
package executor

import (
	"context"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/codeskills"
	"github.com/jingkaihe/skillet/pkg/credentials"
	"github.com/jingkaihe/skillet/pkg/history"
	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/models"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/sysprompt"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// Catalog is the part of the skill catalog the executor reads.
type Catalog interface {
	Get(ctx context.Context, name string) (*skills.Descriptor, error)
	LoadContent(ctx context.Context, name string) (*skills.ContentBundle, error)
}

// Dispatcher sends a prompt to a provider.
type Dispatcher interface {
	Call(ctx context.Context, provider string, req llmtypes.Request) (string, error)
}

// Defaults apply to prompt skills when neither the call nor the step config
// names a provider or model.
type Defaults struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Options are the per-call knobs. Config carries step config: for prompt
// skills the keys provider, model, max_tokens and temperature are honoured;
// for code skills every key is passed to the skill as an argument.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature *float64
	Config      map[string]any
}

type promptConfig struct {
	Provider    string   `mapstructure:"provider"`
	Model       string   `mapstructure:"model"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"`
}

// Executor runs skills. It never mutates the catalog or the briefing.
type Executor struct {
	catalog    Catalog
	dispatcher Dispatcher
	resolver   *models.Resolver
	defaults   Defaults
	envFiles   []string
	recorder   history.Recorder
}

// Option configures an Executor.
type Option func(*Executor)

// WithDefaults sets the fallback provider, model and token limit.
func WithDefaults(d Defaults) Option {
	return func(e *Executor) { e.defaults = d }
}

// WithEnvFiles sets the shared .env files consulted after a skill's own
// .env, highest precedence first.
func WithEnvFiles(files ...string) Option {
	return func(e *Executor) { e.envFiles = files }
}

// WithRecorder records every execution.
func WithRecorder(r history.Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// New creates an executor.
func New(catalog Catalog, dispatcher Dispatcher, resolver *models.Resolver, opts ...Option) *Executor {
	e := &Executor{
		catalog:    catalog,
		dispatcher: dispatcher,
		resolver:   resolver,
		defaults:   Defaults{Provider: "anthropic", Model: "claude-sonnet-latest"},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named skill against input.
func (e *Executor) Execute(ctx context.Context, name, input string, opts Options) (*Result, error) {
	var result *Result
	err := telemetry.WithSpan(ctx, "skill.execute", func(ctx context.Context) error {
		var err error
		result, err = e.execute(ctx, name, input, opts)
		return err
	}, attribute.String("skill", name))
	return result, err
}

func (e *Executor) execute(ctx context.Context, name, input string, opts Options) (*Result, error) {
	d, err := e.catalog.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, map[string]any{"skill": name, "kind": d.Kind.String()})
	log := logger.G(ctx)
	log.Info("skill started")
	log.WithField("input_chars", len(input)).Debug("skill input")

	start := time.Now()
	var result *Result
	if d.Kind.IsCode() {
		result, err = e.runCode(ctx, d, input, opts)
	} else {
		result, err = e.runPrompt(ctx, d, input, opts)
	}
	duration := time.Since(start)

	e.record(ctx, d, input, result, duration, err)

	if err != nil {
		log.WithError(err).WithField("duration", duration).Info("skill failed")
		return nil, err
	}

	result.Metadata.Duration = duration
	log.WithField("duration", duration).Info("skill finished")
	log.WithField("output_chars", len(result.Text())).Debug("skill output")
	return result, nil
}

func (e *Executor) runPrompt(ctx context.Context, d *skills.Descriptor, input string, opts Options) (*Result, error) {
	bundle, err := e.catalog.LoadContent(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if d.HasSource && strings.TrimSpace(bundle.BaseRole) == "" {
		return nil, errors.Wrapf(codeskills.ErrNotImplemented, "'%s' has source code but no registered code entry", d.Name)
	}

	system, err := sysprompt.Compose(bundle)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compose system prompt")
	}

	cfg, err := e.promptConfig(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config for skill '%s'", d.Name)
	}

	provider := cfg.Provider
	model := cfg.Model
	if e.resolver != nil {
		resolved := e.resolver.Resolve(ctx, model)
		model = resolved.ID
		if resolved.Provider != "" {
			provider = resolved.Provider
		}
	}

	text, err := e.dispatcher.Call(ctx, provider, llmtypes.Request{
		System:      system,
		User:        input,
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Output: text,
		Metadata: Metadata{
			Skill:    d.Name,
			Kind:     d.Kind.String(),
			Provider: provider,
			Model:    model,
		},
	}, nil
}

// promptConfig layers explicit options over step config over defaults.
func (e *Executor) promptConfig(opts Options) (promptConfig, error) {
	var fromStep promptConfig
	if len(opts.Config) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &fromStep,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return fromStep, err
		}
		if err := decoder.Decode(opts.Config); err != nil {
			return fromStep, err
		}
	}

	cfg := promptConfig{
		Provider:    firstNonEmpty(opts.Provider, fromStep.Provider, e.defaults.Provider),
		Model:       firstNonEmpty(opts.Model, fromStep.Model, e.defaults.Model),
		MaxTokens:   firstPositive(opts.MaxTokens, fromStep.MaxTokens, e.defaults.MaxTokens),
		Temperature: opts.Temperature,
	}
	if cfg.Temperature == nil {
		cfg.Temperature = fromStep.Temperature
	}
	return cfg, nil
}

func (e *Executor) runCode(ctx context.Context, d *skills.Descriptor, input string, opts Options) (*Result, error) {
	restore, err := credentials.Overlay(ctx, append([]string{d.EnvFile()}, e.envFiles...)...)
	if err != nil {
		return nil, err
	}
	defer restore()

	output, err := d.Kind.Entry().Invoke(ctx, input, opts.Config)
	if err != nil {
		return nil, errors.Wrapf(err, "code skill '%s' failed", d.Name)
	}

	return &Result{
		Output:   output,
		Metadata: Metadata{Skill: d.Name, Kind: d.Kind.String()},
	}, nil
}

func (e *Executor) record(ctx context.Context, d *skills.Descriptor, input string, result *Result, duration time.Duration, runErr error) {
	if e.recorder == nil {
		return
	}

	run := history.Run{
		Kind:       history.KindSkill,
		Name:       d.Name,
		Status:     history.StatusSucceeded,
		InputChars: len(input),
		DurationMS: duration.Milliseconds(),
		StartedAt:  time.Now().Add(-duration),
	}
	if result != nil {
		run.Provider = result.Metadata.Provider
		run.Model = result.Metadata.Model
		run.OutputChars = len(result.Text())
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		if errors.Is(runErr, context.Canceled) {
			run.Status = history.StatusCancelled
		}
		run.Error = runErr.Error()
	}

	if err := e.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record run history")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
