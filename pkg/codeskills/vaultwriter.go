package codeskills

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// VaultPathEnvVars are consulted in order when no vault_path option is set.
var VaultPathEnvVars = []string{"SKILLET_VAULT_PATH", "OBSIDIAN_VAULT_PATH"}

// VaultWriterArgs is the argument shape of the vault-writer skill.
type VaultWriterArgs struct {
	Content   string   `mapstructure:"input"`
	Title     string   `mapstructure:"title"`
	Folder    string   `mapstructure:"folder"`
	Tags      []string `mapstructure:"tags"`
	VaultPath string   `mapstructure:"vault_path"`
	Overwrite bool     `mapstructure:"overwrite"`
}

// VaultWriterEntry saves the input as a markdown note inside an Obsidian vault.
func VaultWriterEntry() *Entry {
	return NewEntry("vault-writer", "Save text as a markdown note in an Obsidian vault", writeNote)
}

type noteFrontmatter struct {
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags,omitempty"`
	Created string   `yaml:"created"`
}

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9 _-]+`)

func writeNote(_ context.Context, args *VaultWriterArgs) (any, error) {
	vault := args.VaultPath
	for _, key := range VaultPathEnvVars {
		if vault != "" {
			break
		}
		vault = os.Getenv(key)
	}
	if vault == "" {
		return nil, errors.Errorf("no vault path configured: set %s or pass vault_path", strings.Join(VaultPathEnvVars, " or "))
	}

	title := strings.TrimSpace(args.Title)
	if title == "" {
		title = titleFromContent(args.Content)
	}
	fileName := strings.TrimSpace(slugUnsafe.ReplaceAllString(title, ""))
	if fileName == "" {
		fileName = "note-" + time.Now().Format("20060102-150405")
	}

	dir := filepath.Join(vault, filepath.Clean("/"+args.Folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create note folder")
	}

	path := filepath.Join(dir, fileName+".md")
	if _, err := os.Stat(path); err == nil && !args.Overwrite {
		return nil, errors.Errorf("note already exists: %s (set overwrite: true to replace it)", path)
	}

	front, err := yaml.Marshal(noteFrontmatter{
		Title:   title,
		Tags:    args.Tags,
		Created: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode note frontmatter")
	}

	note := "---\n" + string(front) + "---\n\n" + strings.TrimSpace(args.Content) + "\n"
	if err := os.WriteFile(path, []byte(note), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write note")
	}

	return map[string]any{"path": path, "title": title}, nil
}

func titleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if len(line) > 80 {
			line = line[:80]
		}
		return line
	}
	return ""
}
