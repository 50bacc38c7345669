package skills

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

const maxSuggestionDistance = 3

// NotFoundError is returned when a skill name does not resolve.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("skill '%s' not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// Hint is shown below the error by the CLI.
func (e *NotFoundError) Hint() string {
	return "Run 'skillet list' to see available skills."
}

// Suggest returns candidates close to name: substring or prefix matches
// first, then names within a small edit distance.
func Suggest(name string, candidates []string) []string {
	type scored struct {
		name  string
		score int
	}
	lower := strings.ToLower(name)

	var matches []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		switch {
		case lc == lower:
			continue
		case lower != "" && (strings.Contains(lc, lower) || strings.Contains(lower, lc)):
			matches = append(matches, scored{c, 0})
		default:
			if d := levenshtein.Distance(lower, lc, nil); d <= maxSuggestionDistance {
				matches = append(matches, scored{c, d})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].name < matches[j].name
	})

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}
