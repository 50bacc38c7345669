// Package skills is the skill catalog. A skill is a directory holding a
// SKILL.md file whose YAML frontmatter names and describes it; the markdown
// body is the skill's role definition. Optional PROFILE.md (or the fallback
// PROFILE.md.template) customises the skill for the operator.
package skills

import (
	"github.com/jingkaihe/skillet/pkg/codeskills"
)

const (
	skillFileName       = "SKILL.md"
	profileFileName     = "PROFILE.md"
	profileTemplateName = "PROFILE.md.template"
	sourceDirName       = "src"
	envFileName         = ".env"
)

// Kind tells prompt skills and code skills apart. Code skills carry their
// registry entry so callers never look it up twice.
type Kind struct {
	entry *codeskills.Entry
}

// PromptKind is the kind of every skill without a code registry entry.
var PromptKind = Kind{}

// CodeKind wraps a registry entry.
func CodeKind(entry *codeskills.Entry) Kind {
	return Kind{entry: entry}
}

// IsCode reports whether the skill runs a registered Go function.
func (k Kind) IsCode() bool { return k.entry != nil }

// Entry returns the code registry entry, nil for prompt skills.
func (k Kind) Entry() *codeskills.Entry { return k.entry }

func (k Kind) String() string {
	if k.IsCode() {
		return "code"
	}
	return "prompt"
}

// MarshalText renders the kind as "prompt" or "code".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ProfileState describes which profile layer a skill has.
type ProfileState string

const (
	ProfileNone         ProfileState = "none"
	ProfileTemplateOnly ProfileState = "template-only"
	ProfileCustomized   ProfileState = "customized"
)

// Descriptor is a discovered skill.
type Descriptor struct {
	Name         string       `json:"name" yaml:"name"`
	Kind         Kind         `json:"kind" yaml:"kind"`
	Description  string       `json:"description" yaml:"description"`
	Path         string       `json:"path" yaml:"path"`
	ProfileState ProfileState `json:"profile_state" yaml:"profile_state"`
	ParentSkill  string       `json:"parent_skill,omitempty" yaml:"parent_skill,omitempty"`
	HasSource    bool         `json:"has_source,omitempty" yaml:"has_source,omitempty"`
}

// ContentBundle holds the three prompt layers of a skill. Absent layers are nil.
type ContentBundle struct {
	BaseRole        string
	GlobalBrief     *string
	SpecificProfile *string
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Version     string   `yaml:"version,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}
