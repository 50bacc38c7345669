package codeskills

import (
	"context"
	"strings"
	"unicode/utf8"
)

// TextStatsArgs is the argument shape of the text-stats skill.
type TextStatsArgs struct {
	Text string `mapstructure:"input"`
}

// TextStats is the structured output of the text-stats skill.
type TextStats struct {
	Words           int `json:"words" yaml:"words"`
	Characters      int `json:"characters" yaml:"characters"`
	Lines           int `json:"lines" yaml:"lines"`
	EstimatedTokens int `json:"estimated_tokens" yaml:"estimated_tokens"`
}

// TextStatsEntry counts words, characters and lines.
func TextStatsEntry() *Entry {
	return NewEntry("text-stats", "Count words, characters and lines of the input", func(_ context.Context, args *TextStatsArgs) (any, error) {
		text := args.Text
		stats := TextStats{
			Words:           len(strings.Fields(text)),
			Characters:      utf8.RuneCountInString(text),
			EstimatedTokens: len(text) / 4,
		}
		if text != "" {
			stats.Lines = strings.Count(strings.TrimRight(text, "\n"), "\n") + 1
		}
		return stats, nil
	})
}
