// Package llm dispatches provider-agnostic text generation requests with a
// shared retry policy and a lazily built client per provider credential.
package llm

import (
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/llm/anthropic"
	"github.com/jingkaihe/skillet/pkg/llm/google"
	"github.com/jingkaihe/skillet/pkg/llm/openai"
	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

// Factory builds a provider client for one credential.
type Factory struct {
	// KeyEnvVar names the credential variable, used in error hints.
	KeyEnvVar string
	// APIKey reads the credential from the environment.
	APIKey func() string
	// New builds the client.
	New func(ctx context.Context, apiKey string) (llmtypes.Provider, error)
}

func envKey(name string) func() string {
	return func() string { return os.Getenv(name) }
}

// DefaultFactories returns the built-in providers. baseURLs optionally
// overrides endpoints per provider name.
func DefaultFactories(baseURLs map[string]string) map[string]Factory {
	factories := map[string]Factory{
		anthropic.ProviderName: {
			KeyEnvVar: anthropic.APIKeyEnvVar,
			APIKey:    envKey(anthropic.APIKeyEnvVar),
			New: func(_ context.Context, key string) (llmtypes.Provider, error) {
				return anthropic.New(key, anthropicOptions(baseURLs[anthropic.ProviderName])...), nil
			},
		},
		google.ProviderName: {
			KeyEnvVar: google.APIKeyEnvVar,
			APIKey:    google.APIKeyFromEnv,
			New: func(ctx context.Context, key string) (llmtypes.Provider, error) {
				return google.New(ctx, key, baseURLs[google.ProviderName])
			},
		},
	}

	for name, preset := range openai.Presets {
		preset := preset
		factories[name] = Factory{
			KeyEnvVar: preset.APIKeyEnvVar,
			APIKey:    envKey(preset.APIKeyEnvVar),
			New: func(_ context.Context, key string) (llmtypes.Provider, error) {
				return openai.New(preset, key, baseURLs[preset.Name]), nil
			},
		}
	}
	return factories
}

// ProviderNames lists the built-in provider names.
func ProviderNames() []string {
	names := make([]string, 0)
	for name := range DefaultFactories(nil) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyEnvVar returns the credential variable for a built-in provider.
func KeyEnvVar(provider string) (string, error) {
	f, ok := DefaultFactories(nil)[provider]
	if !ok {
		return "", errors.Errorf("unknown provider '%s'", provider)
	}
	return f.KeyEnvVar, nil
}
