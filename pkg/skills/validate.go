package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// Problem is one integrity finding for a skill directory.
type Problem struct {
	Skill   string `json:"skill" yaml:"skill"`
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Skill, p.Message)
}

// Validate checks every skill directory under the root, including those that
// discovery omits, and every registered code skill.
func (c *Catalog) Validate(ctx context.Context) []Problem {
	var problems []Problem

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return []Problem{{Skill: "-", Path: c.root, Message: fmt.Sprintf("skills directory unreadable: %v", err)}}
	}

	found := make(map[string]bool)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(c.root, entry.Name())
		if !isDir(dir) {
			continue
		}
		problems = append(problems, c.checkSkillDir(dir, entry.Name(), found)...)
	}

	for _, name := range c.registry.Names() {
		if !found[name] {
			problems = append(problems, Problem{
				Skill:   name,
				Path:    filepath.Join(c.root, name),
				Message: "code skill is registered but has no skill directory",
			})
		}
	}

	logger.G(ctx).WithField("problems", len(problems)).Debug("validated skills directory")
	return problems
}

func (c *Catalog) checkSkillDir(dir, dirName string, found map[string]bool) []Problem {
	skillPath := filepath.Join(dir, skillFileName)
	content, err := os.ReadFile(skillPath)
	if err != nil {
		return []Problem{{Skill: dirName, Path: dir, Message: "missing " + skillFileName}}
	}

	m, body, err := ParseSkillFile(content)
	if err != nil {
		return []Problem{{Skill: dirName, Path: skillPath, Message: err.Error()}}
	}
	found[m.Name] = true

	var problems []Problem
	if m.Name != dirName {
		problems = append(problems, Problem{
			Skill:   m.Name,
			Path:    skillPath,
			Message: fmt.Sprintf("frontmatter name does not match directory '%s'", dirName),
		})
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			problems = append(problems, Problem{
				Skill:   m.Name,
				Path:    skillPath,
				Message: fmt.Sprintf("version '%s' is not a semantic version", m.Version),
			})
		}
	}
	if _, isCode := c.registry.Lookup(m.Name); !isCode && strings.TrimSpace(body) == "" {
		problems = append(problems, Problem{Skill: m.Name, Path: skillPath, Message: "skill body is empty"})
	}
	return problems
}
