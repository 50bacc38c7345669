// Package config holds skillet's settings: defaults, the user config file,
// SKILLET_* environment variables and command-line flags, layered by viper.
package config

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// EnvPrefix namespaces environment overrides: retry.attempts is read from
// SKILLET_RETRY_ATTEMPTS.
const EnvPrefix = "SKILLET"

// Defaults lists every known key with its default value.
var Defaults = map[string]any{
	"provider":                  "anthropic",
	"model":                     "claude-sonnet-latest",
	"max_tokens":                4096,
	"log_level":                 "warn",
	"log_format":                "fmt",
	"retry.attempts":            3,
	"rate_limit.rpm":            0,
	"workflow.max_steps":        50,
	"dry_run.price_per_million": 5.0,
	"intent.provider":           "anthropic",
	"intent.model":              "claude-haiku-latest",
	"models.probe":              true,
	"history.enabled":           true,
	"tracing.enabled":           false,
	"tracing.service_name":      "skillet",
	"tracing.endpoint":          "",
	"tracing.sampler":           "ratio",
	"tracing.ratio":             1.0,
}

// providerKeyPrefix admits per-provider keys such as providers.openai.base_url.
const providerKeyPrefix = "providers."

// Settings is the decoded configuration.
type Settings struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Retry struct {
		Attempts int `mapstructure:"attempts"`
	} `mapstructure:"retry"`

	RateLimit struct {
		RPM int `mapstructure:"rpm"`
	} `mapstructure:"rate_limit"`

	Workflow struct {
		MaxSteps int `mapstructure:"max_steps"`
	} `mapstructure:"workflow"`

	DryRun struct {
		PricePerMillion float64 `mapstructure:"price_per_million"`
	} `mapstructure:"dry_run"`

	Intent struct {
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"intent"`

	Models struct {
		Probe bool `mapstructure:"probe"`
	} `mapstructure:"models"`

	History struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"history"`

	Tracing telemetry.Config `mapstructure:"tracing"`

	Providers map[string]ProviderSettings `mapstructure:"providers"`
}

// ProviderSettings are per-provider overrides.
type ProviderSettings struct {
	BaseURL string `mapstructure:"base_url"`
}

// BaseURLs returns the configured base URL per provider.
func (s *Settings) BaseURLs() map[string]string {
	out := make(map[string]string, len(s.Providers))
	for name, p := range s.Providers {
		if p.BaseURL != "" {
			out[name] = p.BaseURL
		}
	}
	return out
}

// Keys returns the known keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnown reports whether key may be read or written.
func IsKnown(key string) bool {
	if _, ok := Defaults[key]; ok {
		return true
	}
	return strings.HasPrefix(key, providerKeyPrefix) && strings.Count(key, ".") == 2
}

// Init prepares v: defaults, environment binding and, when the file exists,
// the config file at path.
func Init(v *viper.Viper, path string) error {
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || isNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

// Load decodes v into Settings.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	return &s, nil
}
