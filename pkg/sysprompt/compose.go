package sysprompt

import (
	"strings"

	"github.com/jingkaihe/skillet/pkg/skills"
)

// Compose merges a skill's content layers into one system prompt. Sections
// appear in precedence order: role, master briefing, then the skill profile.
func Compose(bundle *skills.ContentBundle) (string, error) {
	return defaultRenderer.Compose(bundle)
}

// Compose renders the bundle with this renderer's templates.
func (r *Renderer) Compose(bundle *skills.ContentBundle) (string, error) {
	prompt, err := r.RenderSystemPrompt(NewPromptContext(bundle))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(prompt, "\n") + "\n", nil
}
