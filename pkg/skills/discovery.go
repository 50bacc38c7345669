package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/codeskills"
	"github.com/jingkaihe/skillet/pkg/logger"
)

// BriefingSource supplies the rendered master briefing.
type BriefingSource interface {
	FormatForPrompt(ctx context.Context) string
}

// Catalog discovers skills under a single root directory and caches the
// result until Reload is called.
type Catalog struct {
	root     string
	registry *codeskills.Registry
	briefing BriefingSource

	mu     sync.RWMutex
	loaded bool
	skills []*Descriptor
	byName map[string]*Descriptor
}

// Option is a function that configures a Catalog
type Option func(*Catalog)

// WithRegistry sets the code-skill registry used for kind classification.
func WithRegistry(r *codeskills.Registry) Option {
	return func(c *Catalog) {
		c.registry = r
	}
}

// WithBriefing sets the master briefing layer returned by LoadContent.
func WithBriefing(b BriefingSource) Option {
	return func(c *Catalog) {
		c.briefing = b
	}
}

// NewCatalog creates a catalog rooted at dir. Without WithRegistry the
// default code-skill registry is used.
func NewCatalog(root string, opts ...Option) *Catalog {
	c := &Catalog{root: root}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = codeskills.Default()
	}
	return c
}

// Root returns the skills directory.
func (c *Catalog) Root() string {
	return c.root
}

// Registry returns the code-skill registry used for classification.
func (c *Catalog) Registry() *codeskills.Registry {
	return c.registry
}

// Discover returns every skill sorted by name. The scan happens once; later
// calls are served from the cache.
func (c *Catalog) Discover(ctx context.Context) []*Descriptor {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return append([]*Descriptor(nil), c.skills...)
	}
	c.mu.RUnlock()

	return c.rescan(ctx)
}

// Get returns the named skill, rescanning once on a cache miss.
func (c *Catalog) Get(ctx context.Context, name string) (*Descriptor, error) {
	c.mu.RLock()
	d, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	skills := c.rescan(ctx)

	c.mu.RLock()
	d, ok = c.byName[name]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return nil, &NotFoundError{Name: name, Suggestions: Suggest(name, names)}
}

// Names returns the sorted skill names.
func (c *Catalog) Names(ctx context.Context) []string {
	skills := c.Discover(ctx)
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return names
}

// Reload drops the cached scan.
func (c *Catalog) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.skills = nil
	c.byName = nil
}

// LoadContent reads the three prompt layers of a skill.
func (c *Catalog) LoadContent(ctx context.Context, name string) (*ContentBundle, error) {
	d, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(d.Path, skillFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s for skill '%s'", skillFileName, name)
	}
	_, body, err := ParseSkillFile(content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s for skill '%s'", skillFileName, name)
	}

	bundle := &ContentBundle{BaseRole: body}

	if c.briefing != nil {
		if brief := c.briefing.FormatForPrompt(ctx); brief != "" {
			bundle.GlobalBrief = &brief
		}
	}

	if profilePath := profileFile(d.Path); profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read profile for skill '%s'", name)
		}
		if profile := strings.TrimSpace(string(data)); profile != "" {
			bundle.SpecificProfile = &profile
		}
	}

	return bundle, nil
}

func (c *Catalog) rescan(ctx context.Context) []*Descriptor {
	skills := c.scan(ctx)

	byName := make(map[string]*Descriptor, len(skills))
	for _, s := range skills {
		byName[s.Name] = s
	}

	c.mu.Lock()
	c.skills = skills
	c.byName = byName
	c.loaded = true
	c.mu.Unlock()

	return append([]*Descriptor(nil), skills...)
}

func (c *Catalog) scan(ctx context.Context) []*Descriptor {
	log := logger.G(ctx).WithField("dir", c.root)

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to read skills directory")
		}
		return []*Descriptor{}
	}

	seen := make(map[string]string)
	skills := []*Descriptor{}
	add := func(d *Descriptor) {
		if prev, dup := seen[d.Name]; dup {
			log.WithField("skill", d.Name).
				Warnf("duplicate skill name at %s, keeping %s", d.Path, prev)
			return
		}
		seen[d.Name] = d.Path
		skills = append(skills, d)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		entryPath := filepath.Join(c.root, entry.Name())
		if !isDir(entryPath) {
			continue
		}

		parent, ok := c.loadSkill(ctx, entryPath, "")
		if !ok {
			continue
		}
		add(parent)

		children, err := os.ReadDir(entryPath)
		if err != nil {
			continue
		}
		for _, child := range children {
			if child.Name() == sourceDirName || strings.HasPrefix(child.Name(), ".") {
				continue
			}
			childPath := filepath.Join(entryPath, child.Name())
			if !isDir(childPath) {
				continue
			}
			if sub, ok := c.loadSkill(ctx, childPath, parent.Name); ok {
				add(sub)
			}
		}
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// loadSkill parses dir/SKILL.md. Directories without the file are skipped
// silently; malformed files are logged and skipped.
func (c *Catalog) loadSkill(ctx context.Context, dir, parent string) (*Descriptor, bool) {
	skillPath := filepath.Join(dir, skillFileName)
	content, err := os.ReadFile(skillPath)
	if err != nil {
		return nil, false
	}

	m, _, err := ParseSkillFile(content)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", skillPath).Warn("skipping skill with malformed frontmatter")
		return nil, false
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	d := &Descriptor{
		Name:         m.Name,
		Kind:         PromptKind,
		Description:  m.Description,
		Path:         abs,
		ProfileState: profileState(dir),
		ParentSkill:  parent,
		HasSource:    isDir(filepath.Join(dir, sourceDirName)),
	}
	if entry, ok := c.registry.Lookup(m.Name); ok {
		d.Kind = CodeKind(entry)
	}
	return d, true
}

// EnvFile returns the skill's private .env path.
func (d *Descriptor) EnvFile() string {
	return filepath.Join(d.Path, envFileName)
}

func profileFile(dir string) string {
	for _, name := range []string{profileFileName, profileTemplateName} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func profileState(dir string) ProfileState {
	switch filepath.Base(profileFile(dir)) {
	case profileFileName:
		return ProfileCustomized
	case profileTemplateName:
		return ProfileTemplateOnly
	default:
		return ProfileNone
	}
}

// isDir follows symlinks.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
