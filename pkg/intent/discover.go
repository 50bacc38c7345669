package intent

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jingkaihe/skillet/pkg/skills"
)

// Match is a skill ranked against a query.
type Match struct {
	Skill *skills.Descriptor `json:"skill" yaml:"skill"`
	Score int                `json:"score" yaml:"score"`
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "to": true, "of": true, "for": true,
	"in": true, "on": true, "with": true, "my": true, "me": true, "i": true, "is": true,
	"it": true, "this": true, "that": true, "be": true, "or": true, "from": true,
}

// Rank scores skills by keyword overlap with query, locally and without an
// LLM call. Name matches weigh twice as much as description matches.
// Skills with no overlap are omitted.
func Rank(query string, candidates []*skills.Descriptor) []Match {
	terms := keywords(query)
	if len(terms) == 0 {
		return nil
	}

	var matches []Match
	for _, d := range candidates {
		name := set(keywords(d.Name))
		desc := set(keywords(d.Description))
		score := 0
		for _, t := range terms {
			if name[t] {
				score += 2
			}
			if desc[t] {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, Match{Skill: d, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Skill.Name < matches[j].Skill.Name
	})
	return matches
}

func keywords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func set(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
