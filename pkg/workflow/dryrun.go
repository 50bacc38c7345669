package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/skillet/pkg/executor"
)

const (
	// DefaultPricePerMillion is the blended dollars-per-million-token figure
	// used for dry-run estimates.
	DefaultPricePerMillion = 5.0
	// ResponseTokensPerStep is the assumed output allowance per step.
	ResponseTokensPerStep = 1000
	previewChars          = 200
)

// StepEstimate previews one step without running it.
type StepEstimate struct {
	Name   string `json:"name" yaml:"name"`
	Skill  string `json:"skill" yaml:"skill"`
	Input  string `json:"input" yaml:"input"`
	Chars  int    `json:"chars" yaml:"chars"`
	Tokens int    `json:"tokens" yaml:"tokens"`
}

// Estimate is a dry-run report. Cost is approximate: it applies one blended
// price to input and output tokens alike.
type Estimate struct {
	Workflow    string         `json:"workflow" yaml:"workflow"`
	Steps       []StepEstimate `json:"steps" yaml:"steps"`
	TotalChars  int            `json:"total_chars" yaml:"total_chars"`
	TotalTokens int            `json:"total_tokens" yaml:"total_tokens"`
	Cost        float64        `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
}

// DryRun previews def without invoking any skill. Outputs of steps that have
// not run are replaced with Placeholder unless args already bind them.
func (e *Engine) DryRun(def *Definition, args map[string]any) (*Estimate, error) {
	vars, err := ResolveVariables(def.Variables, args)
	if err != nil {
		return nil, err
	}

	est := &Estimate{Workflow: def.Name}
	for _, step := range def.Steps {
		input := executor.Stringify(Substitute(step.Input, vars))
		chars := utf8.RuneCountInString(input)
		est.Steps = append(est.Steps, StepEstimate{
			Name:   step.Name,
			Skill:  step.Skill,
			Input:  input,
			Chars:  chars,
			Tokens: chars / 4,
		})
		est.TotalChars += chars
		if _, bound := vars[step.Output]; !bound {
			vars[step.Output] = Placeholder
		}
	}

	est.TotalTokens = est.TotalChars/4 + ResponseTokensPerStep*len(def.Steps)
	est.Cost = float64(est.TotalTokens) / 1e6 * e.pricePerMillion
	return est, nil
}

// Plain implements presenter.PlainRenderer.
func (est *Estimate) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dry run: %s (%d steps)\n", est.Workflow, len(est.Steps))
	for i, s := range est.Steps {
		fmt.Fprintf(&b, "\n%d. %s [%s]\n", i+1, s.Name, s.Skill)
		fmt.Fprintf(&b, "   input: %s\n", preview(s.Input))
		fmt.Fprintf(&b, "   chars: %d, tokens: ~%d\n", s.Chars, s.Tokens)
	}
	fmt.Fprintf(&b, "\nTotal: %d chars, ~%d tokens, ~$%.4f\n", est.TotalChars, est.TotalTokens, est.Cost)
	return b.String()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewChars {
		return s
	}
	return string([]rune(s)[:previewChars]) + "..."
}
