package workflow

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/executor"
	"github.com/jingkaihe/skillet/pkg/history"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// Executor runs one skill.
type Executor interface {
	Execute(ctx context.Context, name, input string, opts executor.Options) (*executor.Result, error)
}

// StepResult records one completed step.
type StepResult struct {
	Name     string            `json:"name" yaml:"name"`
	Skill    string            `json:"skill" yaml:"skill"`
	Output   string            `json:"output" yaml:"output"`
	Metadata executor.Metadata `json:"metadata" yaml:"metadata"`
}

// Run is the outcome of one workflow execution. On failure it holds every
// binding made before the failing step.
type Run struct {
	Workflow string         `json:"workflow" yaml:"workflow"`
	Context  map[string]any `json:"context" yaml:"context"`
	Steps    []StepResult   `json:"steps" yaml:"steps"`
	Output   any            `json:"output" yaml:"output"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// Text renders the final output.
func (r *Run) Text() string {
	if r == nil {
		return ""
	}
	return executor.Stringify(r.Output)
}

// Plain implements presenter.PlainRenderer.
func (r *Run) Plain() string { return r.Text() }

// Markdown implements presenter.MarkdownRenderer.
func (r *Run) Markdown() string { return r.Text() }

// Engine executes validated workflows sequentially.
type Engine struct {
	executor        Executor
	validator       *Validator
	recorder        history.Recorder
	pricePerMillion float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithValidator makes Run refuse workflows that fail validation.
func WithValidator(v *Validator) EngineOption {
	return func(e *Engine) { e.validator = v }
}

// WithRecorder records every workflow run.
func WithRecorder(r history.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithPricePerMillion sets the blended dry-run price in dollars per million
// tokens.
func WithPricePerMillion(price float64) EngineOption {
	return func(e *Engine) {
		if price > 0 {
			e.pricePerMillion = price
		}
	}
}

// NewEngine creates an engine.
func NewEngine(exec Executor, opts ...EngineOption) *Engine {
	e := &Engine{executor: exec, pricePerMillion: DefaultPricePerMillion}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes def with args merged over its variables. Cancellation of ctx
// is observed between steps; a running step always completes.
func (e *Engine) Run(ctx context.Context, def *Definition, args map[string]any) (*Run, error) {
	start := time.Now()
	run, err := e.run(ctx, def, args)
	if run != nil {
		run.Duration = time.Since(start)
	}
	e.record(ctx, def, start, err)
	return run, err
}

func (e *Engine) run(ctx context.Context, def *Definition, args map[string]any) (*Run, error) {
	if e.validator != nil {
		if err := e.validator.Check(ctx, def, keys(args)...); err != nil {
			return nil, err
		}
	}

	vars, err := ResolveVariables(def.Variables, args)
	if err != nil {
		return nil, err
	}

	run := &Run{Workflow: def.Name, Context: vars}
	ctx = logger.WithFields(ctx, map[string]any{"workflow": def.Name})
	logger.G(ctx).WithField("steps", len(def.Steps)).Info("workflow started")

	for i, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			logger.G(ctx).WithField("step", step.Name).Info("workflow interrupted")
			return run, err
		}

		err := telemetry.WithSpan(ctx, "workflow.step", func(ctx context.Context) error {
			return e.runStep(ctx, run, step)
		}, attribute.String("step", step.Name), attribute.String("skill", step.Skill), attribute.Int("index", i))
		if err != nil {
			return run, err
		}
	}

	if n := len(def.Steps); n > 0 {
		run.Output = run.Context[def.Steps[n-1].Output]
	}
	logger.G(ctx).Info("workflow finished")
	return run, nil
}

func (e *Engine) runStep(ctx context.Context, run *Run, step Step) error {
	log := logger.G(ctx).WithField("step", step.Name).WithField("skill", step.Skill)

	input := executor.Stringify(Substitute(step.Input, run.Context))

	log.Debug("step started")
	result, err := e.executor.Execute(context.WithoutCancel(ctx), step.Skill, input, executor.Options{Config: step.Config})
	if err != nil {
		return &StepError{Step: step.Name, Skill: step.Skill, Err: err}
	}

	run.Context[step.Output] = result.Value()
	run.Steps = append(run.Steps, StepResult{
		Name:     step.Name,
		Skill:    step.Skill,
		Output:   step.Output,
		Metadata: result.Metadata,
	})
	log.WithField("duration", result.Metadata.Duration).Debug("step finished")
	return nil
}

// ResolveVariables returns args merged over vars, resolving variables that
// reference other variables in dependency order. Caller-supplied args are
// never overridden.
func ResolveVariables(vars, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vars)+len(args))
	for k, v := range args {
		out[k] = v
	}

	state := make(map[string]int, len(vars))
	var resolve func(name string) error
	resolve = func(name string) error {
		if _, supplied := args[name]; supplied {
			return nil
		}
		switch state[name] {
		case black:
			return nil
		case grey:
			return errors.Errorf("circular variable reference involving '%s'", name)
		}
		state[name] = grey
		value := vars[name]
		if s, ok := value.(string); ok {
			if ref, isRef := ExactReference(s); isRef {
				if _, isVar := vars[rootOf(ref)]; isVar {
					if err := resolve(rootOf(ref)); err != nil {
						return err
					}
				}
			}
		}
		out[name] = Substitute(value, out)
		state[name] = black
		return nil
	}

	for _, name := range keys(vars) {
		if err := resolve(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) record(ctx context.Context, def *Definition, start time.Time, runErr error) {
	if e.recorder == nil {
		return
	}
	run := history.Run{
		Kind:       history.KindWorkflow,
		Name:       def.Name,
		Status:     history.StatusSucceeded,
		DurationMS: time.Since(start).Milliseconds(),
		StartedAt:  start,
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		if errors.Is(runErr, context.Canceled) {
			run.Status = history.StatusCancelled
		}
		run.Error = runErr.Error()
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record workflow history")
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
