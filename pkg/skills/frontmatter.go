package skills

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// ParseSkillFile splits a SKILL.md document into its frontmatter and body.
// Both name and description are required.
func ParseSkillFile(content []byte) (*Metadata, string, error) {
	if !bytes.HasPrefix(content, []byte("---")) {
		return nil, "", errors.New("missing frontmatter")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, "", errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid frontmatter")
	}
	if metaData == nil {
		return nil, "", errors.New("missing frontmatter")
	}

	m := &Metadata{
		Name:        stringField(metaData["name"]),
		Description: stringField(metaData["description"]),
		Version:     stringField(metaData["version"]),
	}
	if tags, ok := metaData["tags"].([]interface{}); ok {
		for _, tag := range tags {
			m.Tags = append(m.Tags, fmt.Sprint(tag))
		}
	}

	if m.Name == "" {
		return nil, "", errors.New("skill name is required in frontmatter")
	}
	if m.Description == "" {
		return nil, "", errors.New("skill description is required in frontmatter")
	}

	return m, extractBodyContent(string(content)), nil
}

// RenderSkillFile is the inverse of ParseSkillFile.
func RenderSkillFile(m Metadata, body string) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal frontmatter")
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(out)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func stringField(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
