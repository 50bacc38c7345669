package sysprompt

import "embed"

// TemplateFS holds the built-in prompt templates.
//
//go:embed templates/*
var TemplateFS embed.FS

const (
	// SystemTemplate is the entry point for skill system prompts.
	SystemTemplate = "templates/system.tmpl"

	Preamble = "You are an AI assistant with specialized skills."

	RoleHeading     = "# Your Role and Guidelines"
	BriefingHeading = "# Global Brand Context (Master Briefing)"
	ProfileHeading  = "# Skill-Specific Customization"
)
