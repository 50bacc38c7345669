package sysprompt

import (
	"strings"

	"github.com/jingkaihe/skillet/pkg/skills"
)

// PromptContext holds all variables for template rendering
type PromptContext struct {
	Preamble        string
	RoleHeading     string
	BriefingHeading string
	ProfileHeading  string

	BaseRole        string
	GlobalBrief     string
	SpecificProfile string
}

// NewPromptContext builds the template data for a skill's content bundle.
// Absent layers become empty strings and their sections are skipped.
func NewPromptContext(bundle *skills.ContentBundle) *PromptContext {
	ctx := &PromptContext{
		Preamble:        Preamble,
		RoleHeading:     RoleHeading,
		BriefingHeading: BriefingHeading,
		ProfileHeading:  ProfileHeading,
	}
	if bundle == nil {
		return ctx
	}

	ctx.BaseRole = strings.TrimSpace(bundle.BaseRole)
	if bundle.GlobalBrief != nil {
		ctx.GlobalBrief = strings.TrimSpace(*bundle.GlobalBrief)
	}
	if bundle.SpecificProfile != nil {
		ctx.SpecificProfile = strings.TrimSpace(*bundle.SpecificProfile)
	}
	return ctx
}
