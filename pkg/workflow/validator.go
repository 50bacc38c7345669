package workflow

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/skills"
)

// DefaultMaxSteps bounds workflow length unless configured otherwise.
const DefaultMaxSteps = 50

// SkillLookup resolves step skills.
type SkillLookup interface {
	Get(ctx context.Context, name string) (*skills.Descriptor, error)
}

// ValidationError aggregates every failed check.
type ValidationError struct {
	Workflow string
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Workflow != "" {
		fmt.Fprintf(&b, "workflow '%s' is invalid:", e.Workflow)
	} else {
		b.WriteString("workflow is invalid:")
	}
	for i, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	return b.String()
}

// Validator rejects malformed workflows before execution.
type Validator struct {
	skills   SkillLookup
	maxSteps int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxSteps overrides DefaultMaxSteps. Non-positive values are ignored.
func WithMaxSteps(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxSteps = n
		}
	}
}

// NewValidator creates a validator checking skills against lookup.
func NewValidator(lookup SkillLookup, opts ...ValidatorOption) *Validator {
	v := &Validator{skills: lookup, maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the workflow file at path. provided names variables the
// caller will supply at run time, such as batch inputs.
func (v *Validator) Validate(ctx context.Context, path string, provided ...string) (bool, []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, []string{fmt.Sprintf("cannot read workflow: %v", err)}
	}
	return v.ValidateBytes(ctx, data, provided...)
}

// ValidateBytes checks raw workflow YAML.
func (v *Validator) ValidateBytes(ctx context.Context, data []byte, provided ...string) (bool, []string) {
	err := v.check(ctx, data, provided)
	if err == nil {
		return true, nil
	}
	return false, problems(err)
}

// Check validates an already loaded definition and returns a
// *ValidationError listing every problem.
func (v *Validator) Check(ctx context.Context, def *Definition, provided ...string) error {
	var result *multierror.Error
	if doc, err := toDocument(def); err != nil {
		result = multierror.Append(result, err)
	} else {
		result = multierror.Append(result, v.checkSchema(doc)...)
	}
	result = multierror.Append(result, v.checkDefinition(ctx, def, provided)...)
	if result.ErrorOrNil() == nil {
		return nil
	}
	return &ValidationError{Workflow: def.Name, Problems: problems(result)}
}

func (v *Validator) check(ctx context.Context, data []byte, provided []string) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "invalid YAML")
	}
	if doc == nil {
		return errors.New("workflow file is empty")
	}

	var result *multierror.Error
	result = multierror.Append(result, v.checkSchema(doc)...)

	// Semantic checks need a decodable shape; a schema failure already
	// explains anything that does not decode.
	var def Definition
	if err := yaml.Unmarshal(data, &def); err == nil {
		result = multierror.Append(result, v.checkDefinition(ctx, &def, provided)...)
	}
	return result.ErrorOrNil()
}

func (v *Validator) checkSchema(doc any) []error {
	loadSchema()
	if schemaErr != nil {
		return []error{schemaErr}
	}
	var errs []error
	for _, msg := range compiled.Validate(doc) {
		errs = append(errs, errors.Errorf("schema: %s", msg))
	}
	return errs
}

func (v *Validator) checkDefinition(ctx context.Context, def *Definition, provided []string) []error {
	var errs []error
	errs = append(errs, v.checkSkills(ctx, def)...)
	errs = append(errs, checkUniqueness(def)...)
	errs = append(errs, checkReferences(def, provided)...)
	errs = append(errs, checkCycles(def)...)
	if len(def.Steps) > v.maxSteps {
		errs = append(errs, errors.Errorf("workflow has %d steps, maximum is %d", len(def.Steps), v.maxSteps))
	}
	return errs
}

func (v *Validator) checkSkills(ctx context.Context, def *Definition) []error {
	if v.skills == nil {
		return nil
	}
	var errs []error
	for _, step := range def.Steps {
		if step.Skill == "" {
			continue
		}
		if _, err := v.skills.Get(ctx, step.Skill); err != nil {
			msg := fmt.Sprintf("step '%s': skill '%s' not found", step.Name, step.Skill)
			var nf *skills.NotFoundError
			if errors.As(err, &nf) && len(nf.Suggestions) > 0 {
				msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(nf.Suggestions, ", "))
			}
			errs = append(errs, errors.New(msg))
		}
	}
	return errs
}

func checkUniqueness(def *Definition) []error {
	var errs []error
	names := make(map[string]bool)
	outputs := make(map[string]string)
	for _, step := range def.Steps {
		if step.Name != "" {
			if names[step.Name] {
				errs = append(errs, errors.Errorf("duplicate step name '%s'", step.Name))
			}
			names[step.Name] = true
		}
		if step.Output == "" {
			continue
		}
		if prev, ok := outputs[step.Output]; ok {
			errs = append(errs, errors.Errorf("step '%s': output '%s' already produced by step '%s'", step.Name, step.Output, prev))
			continue
		}
		outputs[step.Output] = step.Name
	}
	return errs
}

func checkReferences(def *Definition, provided []string) []error {
	available := make(map[string]bool)
	for name := range def.Variables {
		available[name] = true
	}
	for _, name := range provided {
		available[name] = true
	}

	var errs []error
	for _, step := range def.Steps {
		for _, ref := range References(step.Input) {
			if !available[ref] {
				errs = append(errs, &UnresolvedVariableError{Step: step.Name, Reference: ref})
			}
		}
		if step.Output != "" {
			available[step.Output] = true
		}
	}
	return errs
}

const (
	white = iota
	grey
	black
)

func checkCycles(def *Definition) []error {
	graph := make(map[string][]string, len(def.Variables))
	for name, value := range def.Variables {
		s, ok := value.(string)
		if !ok {
			continue
		}
		for _, ref := range References(s) {
			if _, isVar := def.Variables[ref]; isVar {
				graph[name] = append(graph[name], ref)
			}
		}
	}

	names := make([]string, 0, len(def.Variables))
	for name := range def.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	colour := make(map[string]int, len(names))
	var errs []error
	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		colour[name] = grey
		path = append(path, name)
		for _, next := range graph[name] {
			switch colour[next] {
			case grey:
				cycle := append(append([]string{}, path[indexOf(path, next):]...), next)
				errs = append(errs, errors.Errorf("circular variable reference: %s", strings.Join(cycle, " -> ")))
			case white:
				visit(next, path)
			}
		}
		colour[name] = black
	}
	for _, name := range names {
		if colour[name] == white {
			visit(name, nil)
		}
	}
	return errs
}

func indexOf(path []string, name string) int {
	for i, p := range path {
		if p == name {
			return i
		}
	}
	return 0
}

func toDocument(def *Definition) (any, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode workflow")
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to encode workflow")
	}
	return doc, nil
}

func problems(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
