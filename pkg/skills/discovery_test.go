package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/codeskills"
)

func writeSkill(t *testing.T, dir, name, description, body string) string {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	content, err := RenderSkillFile(Metadata{Name: name, Description: description}, body)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, skillFileName), content, 0o644))
	return skillDir
}

type staticBriefing string

func (b staticBriefing) FormatForPrompt(context.Context) string { return string(b) }

func TestDiscover(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	writeSkill(t, tmpDir, "test-skill", "A test skill for unit testing", "# Test Skill\n\nThis is a test skill.\n")
	writeSkill(t, tmpDir, "another-skill", "Another test skill", "# Another Skill\n")

	catalog := NewCatalog(tmpDir, WithRegistry(codeskills.NewRegistry()))
	skills := catalog.Discover(ctx)
	require.Len(t, skills, 2)

	assert.Equal(t, "another-skill", skills[0].Name)
	assert.Equal(t, "test-skill", skills[1].Name)
	assert.Equal(t, "A test skill for unit testing", skills[1].Description)
	assert.Equal(t, filepath.Join(tmpDir, "test-skill"), skills[1].Path)
	assert.Equal(t, PromptKind, skills[1].Kind)
	assert.Equal(t, ProfileNone, skills[1].ProfileState)
	assert.Empty(t, skills[1].ParentSkill)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	catalog := NewCatalog(t.TempDir())
	assert.Empty(t, catalog.Discover(context.Background()))

	missing := NewCatalog(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, missing.Discover(context.Background()))
}

func TestDiscoverSkipsMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "good", "Works", "body")

	tests := map[string]string{
		"no-frontmatter": "# Just markdown\n",
		"no-description": "---\nname: no-description\n---\n\nbody\n",
		"no-name":        "---\ndescription: nameless\n---\n\nbody\n",
		"broken-yaml":    "---\nname: [unclosed\n---\n\nbody\n",
	}
	for dir, content := range tests {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, dir, skillFileName), []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "no-skill-file"), 0o755))

	catalog := NewCatalog(tmpDir)
	assert.Equal(t, []string{"good"}, catalog.Names(context.Background()))
}

func TestDiscoverSubSkills(t *testing.T) {
	tmpDir := t.TempDir()
	parentDir := writeSkill(t, tmpDir, "narrator", "Narrates text", "parent body")
	writeSkill(t, parentDir, "narrator-calm", "Calm variant", "calm body")
	writeSkill(t, parentDir, "src", "Not a variant", "source")
	writeSkill(t, parentDir, ".hidden", "Not a variant", "hidden")
	writeSkill(t, filepath.Join(parentDir, "narrator-calm"), "too-deep", "Not scanned", "deep")

	catalog := NewCatalog(tmpDir)
	skills := catalog.Discover(context.Background())
	require.Len(t, skills, 2)

	assert.Equal(t, "narrator", skills[0].Name)
	assert.True(t, skills[0].HasSource)
	assert.Equal(t, "narrator-calm", skills[1].Name)
	assert.Equal(t, "narrator", skills[1].ParentSkill)
}

func TestDiscoverWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	realDir := t.TempDir()
	target := writeSkill(t, realDir, "linked", "Linked skill", "body")
	require.NoError(t, os.Symlink(target, filepath.Join(tmpDir, "linked")))

	catalog := NewCatalog(tmpDir)
	assert.Equal(t, []string{"linked"}, catalog.Names(context.Background()))
}

func TestDiscoverCachesUntilReload(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()
	writeSkill(t, tmpDir, "first", "First", "body")

	catalog := NewCatalog(tmpDir)
	require.Len(t, catalog.Discover(ctx), 1)

	writeSkill(t, tmpDir, "second", "Second", "body")
	assert.Len(t, catalog.Discover(ctx), 1)

	catalog.Reload()
	assert.Len(t, catalog.Discover(ctx), 2)
}

func TestGetRescansOnMiss(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()
	writeSkill(t, tmpDir, "first", "First", "body")

	catalog := NewCatalog(tmpDir)
	catalog.Discover(ctx)

	writeSkill(t, tmpDir, "late", "Added later", "body")
	d, err := catalog.Get(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, "late", d.Name)
}

func TestGetNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "editor", "Edits", "body")
	writeSkill(t, tmpDir, "researcher", "Researches", "body")

	catalog := NewCatalog(tmpDir)
	_, err := catalog.Get(context.Background(), "editr")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"editor"}, notFound.Suggestions)
	assert.Contains(t, err.Error(), "did you mean: editor?")
	assert.Contains(t, notFound.Hint(), "skillet list")
}

func TestCodeKindClassification(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "text-stats", "Counts things", "")
	writeSkill(t, tmpDir, "editor", "Edits", "body")

	catalog := NewCatalog(tmpDir, WithRegistry(codeskills.NewRegistry(codeskills.TextStatsEntry())))
	ctx := context.Background()

	stats, err := catalog.Get(ctx, "text-stats")
	require.NoError(t, err)
	assert.True(t, stats.Kind.IsCode())
	assert.Equal(t, "text-stats", stats.Kind.Entry().Name)
	assert.Equal(t, "code", stats.Kind.String())

	editor, err := catalog.Get(ctx, "editor")
	require.NoError(t, err)
	assert.False(t, editor.Kind.IsCode())
	assert.Nil(t, editor.Kind.Entry())
}

func TestProfileState(t *testing.T) {
	tmpDir := t.TempDir()
	none := writeSkill(t, tmpDir, "none", "No profile", "body")
	tmpl := writeSkill(t, tmpDir, "tmpl", "Template only", "body")
	custom := writeSkill(t, tmpDir, "custom", "Customized", "body")

	require.NoError(t, os.WriteFile(filepath.Join(tmpl, profileTemplateName), []byte("template"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(custom, profileTemplateName), []byte("template"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(custom, profileFileName), []byte("custom"), 0o644))

	assert.Equal(t, ProfileNone, profileState(none))
	assert.Equal(t, ProfileTemplateOnly, profileState(tmpl))
	assert.Equal(t, ProfileCustomized, profileState(custom))
}

func TestLoadContent(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()
	editor := writeSkill(t, tmpDir, "editor", "Edits", "# Editor\n\nFix grammar.\n")
	writeSkill(t, tmpDir, "plain", "Plain", "Plain body\n")
	tmpl := writeSkill(t, tmpDir, "tmpl", "Template", "Template body\n")

	require.NoError(t, os.WriteFile(filepath.Join(editor, profileFileName), []byte("Use British spelling.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(editor, profileTemplateName), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, profileTemplateName), []byte("Default profile"), 0o644))

	t.Run("all layers", func(t *testing.T) {
		catalog := NewCatalog(tmpDir, WithBriefing(staticBriefing("## Identity")))
		bundle, err := catalog.LoadContent(ctx, "editor")
		require.NoError(t, err)
		assert.Equal(t, "# Editor\n\nFix grammar.\n", bundle.BaseRole)
		require.NotNil(t, bundle.GlobalBrief)
		assert.Equal(t, "## Identity", *bundle.GlobalBrief)
		require.NotNil(t, bundle.SpecificProfile)
		assert.Equal(t, "Use British spelling.", *bundle.SpecificProfile)
	})

	t.Run("template fallback", func(t *testing.T) {
		catalog := NewCatalog(tmpDir)
		bundle, err := catalog.LoadContent(ctx, "tmpl")
		require.NoError(t, err)
		require.NotNil(t, bundle.SpecificProfile)
		assert.Equal(t, "Default profile", *bundle.SpecificProfile)
	})

	t.Run("absent layers", func(t *testing.T) {
		catalog := NewCatalog(tmpDir, WithBriefing(staticBriefing("")))
		bundle, err := catalog.LoadContent(ctx, "plain")
		require.NoError(t, err)
		assert.Nil(t, bundle.GlobalBrief)
		assert.Nil(t, bundle.SpecificProfile)
	})

	t.Run("unknown skill", func(t *testing.T) {
		catalog := NewCatalog(tmpDir)
		_, err := catalog.LoadContent(ctx, "ghost")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestValidate(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "good", "Fine", "body")
	writeSkill(t, tmpDir, "empty-body", "No body", "")
	mismatched := filepath.Join(tmpDir, "wrong-dir")
	require.NoError(t, os.MkdirAll(mismatched, 0o755))
	content, err := RenderSkillFile(Metadata{Name: "right-name", Description: "Mismatch"}, "body")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(mismatched, skillFileName), content, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "bare"), 0o755))
	for name, version := range map[string]string{"versioned": "1.2", "misversioned": "latest"} {
		dir := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		content, err := RenderSkillFile(Metadata{Name: name, Description: "Versioned", Version: version}, "body")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, skillFileName), content, 0o644))
	}

	catalog := NewCatalog(tmpDir, WithRegistry(codeskills.NewRegistry(codeskills.TextStatsEntry())))
	problems := catalog.Validate(context.Background())

	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.String())
	}
	assert.ElementsMatch(t, []string{
		"bare: missing SKILL.md",
		"empty-body: skill body is empty",
		"misversioned: version 'latest' is not a semantic version",
		"right-name: frontmatter name does not match directory 'wrong-dir'",
		"text-stats: code skill is registered but has no skill directory",
	}, messages)
}
