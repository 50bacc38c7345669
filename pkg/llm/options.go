package llm

import (
	"github.com/anthropics/anthropic-sdk-go/option"
)

func anthropicOptions(baseURL string) []option.RequestOption {
	if baseURL == "" {
		return nil
	}
	return []option.RequestOption{option.WithBaseURL(baseURL)}
}
