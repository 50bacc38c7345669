// Package types holds the provider-agnostic LLM call contract shared by the
// dispatcher and every provider adapter.
package types

import "context"

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 4096

// Request is a single-turn text generation call.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// MaxTokensOrDefault returns MaxTokens, or DefaultMaxTokens when unset.
func (r Request) MaxTokensOrDefault() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Provider is implemented by each LLM adapter. Failures should be returned
// as *Error so the dispatcher can decide whether to retry.
type Provider interface {
	Name() string
	Call(ctx context.Context, req Request) (string, error)
}

// Prober can check whether a provider accepts a model name.
type Prober interface {
	Probe(ctx context.Context, model string) error
}
