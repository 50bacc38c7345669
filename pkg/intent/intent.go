// Package intent routes free-text requests to one of a closed set of
// structured actions using a single LLM call.
package intent

import (
	"fmt"
	"strings"
)

// Action is what the operator asked for.
type Action string

const (
	ActionSearch       Action = "search"
	ActionExecuteSkill Action = "execute_skill"
	ActionRunWorkflow  Action = "run_workflow"
	ActionList         Action = "list"
	ActionShow         Action = "show"
	ActionConfig       Action = "config"
	ActionDiscover     Action = "discover"
)

// Actions lists every action in prompt order.
var Actions = []Action{
	ActionSearch, ActionExecuteSkill, ActionRunWorkflow,
	ActionList, ActionShow, ActionConfig, ActionDiscover,
}

// LowConfidence is the threshold below which alternatives are offered.
const LowConfidence = 0.6

// Intent is the structured reading of an utterance.
type Intent struct {
	Action     Action         `json:"action" yaml:"action" jsonschema:"enum=search,enum=execute_skill,enum=run_workflow,enum=list,enum=show,enum=config,enum=discover"`
	Target     string         `json:"target,omitempty" yaml:"target,omitempty" jsonschema:"description=Skill or workflow name when the action needs one"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
	Confidence float64        `json:"confidence" yaml:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning  string         `json:"reasoning" yaml:"reasoning"`

	// Alternatives is filled locally for low-confidence intents.
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty" jsonschema:"-"`
}

// IsConfident reports whether the router is sure enough to act.
func (i *Intent) IsConfident() bool {
	return i.Confidence >= LowConfidence
}

// Input returns the text parameter for execute_skill and run_workflow.
func (i *Intent) Input() string {
	for _, key := range []string{"input", "text", "query"} {
		if v, ok := i.Parameters[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Plain implements presenter.PlainRenderer.
func (i *Intent) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "action: %s\n", i.Action)
	if i.Target != "" {
		fmt.Fprintf(&b, "target: %s\n", i.Target)
	}
	fmt.Fprintf(&b, "confidence: %.2f\n", i.Confidence)
	if i.Reasoning != "" {
		fmt.Fprintf(&b, "reasoning: %s\n", i.Reasoning)
	}
	for _, alt := range i.Alternatives {
		fmt.Fprintf(&b, "  - %s\n", alt)
	}
	return b.String()
}

func alternatives(i *Intent) []string {
	alts := []string{
		"Run 'skillet list' to see every available skill",
		"Run 'skillet discover --query \"<keywords>\"' to search skills by keyword",
		"Run 'skillet workflow list' to see available workflows",
	}
	if i.Target != "" {
		alts = append([]string{fmt.Sprintf("Run 'skillet show %s' to check the suggested skill", i.Target)}, alts...)
	}
	return alts
}

// ParseError reports a response that is not a valid intent. It is a user
// error: rephrasing the request usually helps.
type ParseError struct {
	Raw     string
	Reason  string
	Details []string
}

func (e *ParseError) Error() string {
	msg := "could not understand the request: " + e.Reason
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// Hint suggests a remedy.
func (e *ParseError) Hint() string {
	return "Try rephrasing the request, or use a direct command such as 'skillet call <skill>'."
}
