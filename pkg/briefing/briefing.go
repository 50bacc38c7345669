// Package briefing loads the master briefing: the operator's global brand and
// voice document that is layered into every prompt skill.
package briefing

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// Briefing is the parsed master briefing keyed by section name.
type Briefing map[string]any

// Loader reads the briefing file lazily and caches the parse by mtime.
type Loader struct {
	path string

	mu      sync.Mutex
	mtime   time.Time
	cached  Briefing
	present bool
}

// NewLoader creates a loader for the briefing file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the briefing and whether one is present. A missing, empty or
// unparseable file is reported as absent; parse failures are logged.
func (l *Loader) Load(ctx context.Context) (Briefing, bool) {
	info, err := os.Stat(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithError(err).WithField("path", l.path).Warn("failed to stat master briefing")
		}
		l.reset()
		return nil, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.mtime.IsZero() && info.ModTime().Equal(l.mtime) {
		return l.cached, l.present
	}

	b, err := parse(l.path)
	l.mtime = info.ModTime()
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", l.path).Warn("failed to parse master briefing, ignoring it")
		l.cached, l.present = nil, false
		return nil, false
	}

	l.cached, l.present = b, len(b) > 0
	return l.cached, l.present
}

func (l *Loader) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mtime = time.Time{}
	l.cached, l.present = nil, false
}

func parse(path string) (Briefing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read briefing")
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var b Briefing
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(err, "invalid briefing yaml")
	}
	return b, nil
}

// FormatForPrompt renders the briefing as markdown, or "" when absent.
func (l *Loader) FormatForPrompt(ctx context.Context) string {
	b, ok := l.Load(ctx)
	if !ok {
		return ""
	}
	return b.Format()
}

type field struct {
	key   string
	label string
}

type section struct {
	key    string
	title  string
	fields []field
}

// sections fixes both the rendering order and the recognised subfields.
var sections = []section{
	{"identity", "Identity", []field{
		{"name", "Name"}, {"tagline", "Tagline"}, {"mission", "Mission"},
		{"description", "Description"}, {"values", "Values"},
	}},
	{"audience", "Audience", []field{
		{"primary", "Primary Audience"}, {"secondary", "Secondary Audience"},
		{"pain_points", "Pain Points"}, {"goals", "Goals"},
	}},
	{"voice", "Voice", []field{
		{"tone", "Tone"}, {"style", "Style"}, {"personality", "Personality"},
		{"vocabulary", "Preferred Vocabulary"}, {"avoid", "Avoid"},
	}},
	{"perspective", "Perspective", []field{
		{"beliefs", "Core Beliefs"}, {"stance", "Stance"}, {"contrarian_views", "Contrarian Views"},
	}},
	{"frameworks", "Frameworks", nil},
	{"expertise", "Expertise", []field{
		{"domains", "Domains"}, {"credentials", "Credentials"}, {"experience", "Experience"},
	}},
	{"examples", "Examples", []field{
		{"good", "Good Examples"}, {"bad", "Bad Examples"},
	}},
	{"guardrails", "Guardrails", []field{
		{"always", "Always"}, {"never", "Never"}, {"compliance", "Compliance"},
	}},
}

// Format renders recognised sections in their fixed order. Unknown top-level
// keys and unknown subfields are skipped.
func (b Briefing) Format() string {
	var parts []string
	for _, s := range sections {
		value, ok := b[s.key]
		if !ok || isEmpty(value) {
			continue
		}

		var body string
		if s.fields == nil {
			body = formatFrameworks(value)
		} else {
			body = formatFields(value, s.fields)
		}
		if body == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n%s", s.title, body))
	}
	return strings.Join(parts, "\n\n")
}

func formatFields(value any, fields []field) string {
	m, ok := value.(map[string]any)
	if !ok {
		return formatValue(value)
	}

	var lines []string
	for _, f := range fields {
		v, ok := m[f.key]
		if !ok || isEmpty(v) {
			continue
		}
		switch v.(type) {
		case []any, map[string]any:
			lines = append(lines, fmt.Sprintf("**%s:**\n%s", f.label, formatValue(v)))
		default:
			lines = append(lines, fmt.Sprintf("**%s:** %s", f.label, formatValue(v)))
		}
	}
	return strings.Join(lines, "\n")
}

func formatFrameworks(value any) string {
	switch v := value.(type) {
	case []any:
		var lines []string
		for _, item := range v {
			fw, ok := item.(map[string]any)
			if !ok {
				lines = append(lines, "- "+formatValue(item))
				continue
			}
			name := formatValue(fw["name"])
			desc := formatValue(fw["description"])
			switch {
			case name != "" && desc != "":
				lines = append(lines, fmt.Sprintf("- **%s**: %s", name, desc))
			case name != "":
				lines = append(lines, fmt.Sprintf("- **%s**", name))
			case desc != "":
				lines = append(lines, "- "+desc)
			}
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := sortedKeys(v)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", k, formatValue(v[k])))
		}
		return strings.Join(lines, "\n")
	default:
		return formatValue(v)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, "- "+formatValue(item))
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := sortedKeys(val)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, formatValue(val[k])))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
