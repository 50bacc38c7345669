package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how command results are written to stdout.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatPlain, FormatJSON, FormatYAML, FormatMarkdown}

// ParseFormat validates a --format flag value. Empty means plain.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatPlain, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	if f == "md" {
		return FormatMarkdown, nil
	}
	return "", errors.Errorf("unknown format %q (expected one of json, yaml, markdown, plain)", s)
}

// PlainRenderer is implemented by values with a human-oriented text form.
type PlainRenderer interface {
	Plain() string
}

// MarkdownRenderer is implemented by values with a markdown form.
type MarkdownRenderer interface {
	Markdown() string
}

// Render writes v to w in the requested format.
func Render(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode yaml")
		}
		return enc.Close()
	case FormatMarkdown:
		if m, ok := v.(MarkdownRenderer); ok {
			return writeLine(w, m.Markdown())
		}
		out, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "failed to encode yaml")
		}
		return writeLine(w, "```yaml\n"+strings.TrimRight(string(out), "\n")+"\n```")
	default:
		if p, ok := v.(PlainRenderer); ok {
			return writeLine(w, p.Plain())
		}
		if s, ok := v.(string); ok {
			return writeLine(w, s)
		}
		return writeLine(w, fmt.Sprintf("%v", v))
	}
}

func writeLine(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}
