package executor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata describes how a result was produced.
type Metadata struct {
	Skill    string        `json:"skill" yaml:"skill"`
	Kind     string        `json:"kind" yaml:"kind"`
	Provider string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string        `json:"model,omitempty" yaml:"model,omitempty"`
	Duration time.Duration `json:"duration_ms" yaml:"duration"`
}

// MarshalJSON renders Duration as milliseconds.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	return json.Marshal(struct {
		alias
		Duration int64 `json:"duration_ms"`
	}{alias: alias(m), Duration: m.Duration.Milliseconds()})
}

// Result is the uniform envelope returned for every skill execution.
type Result struct {
	Output   any      `json:"output" yaml:"output"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Text renders the output as a string: text output verbatim, structured
// output as YAML.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	return Stringify(r.Output)
}

// Value returns the output in a form that dotted variable paths can
// traverse: structs become nested maps.
func (r *Result) Value() any {
	if r == nil {
		return nil
	}
	return Normalize(r.Output)
}

// Plain implements presenter.PlainRenderer.
func (r *Result) Plain() string {
	return strings.TrimRight(r.Text(), "\n")
}

// Markdown implements presenter.MarkdownRenderer.
func (r *Result) Markdown() string {
	if s, ok := r.Output.(string); ok {
		return strings.TrimRight(s, "\n")
	}
	return "```yaml\n" + strings.TrimRight(r.Text(), "\n") + "\n```"
}

// Stringify renders any value as text.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

// Normalize converts structured values into plain maps and slices.
func Normalize(v any) any {
	switch v.(type) {
	case nil, string, map[string]any:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
