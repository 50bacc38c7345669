// Package models maps logical model aliases onto concrete provider model IDs.
package models

import (
	"context"
	_ "embed"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/logger"
)

//go:embed default_models.yaml
var defaultRegistryYAML []byte

// Entry is the concrete model an alias points at.
type Entry struct {
	Provider string `yaml:"provider" json:"provider"`
	ID       string `yaml:"id" json:"id"`
}

// Registry is the parsed model registry file.
type Registry struct {
	Models        map[string]Entry  `yaml:"models" json:"models"`
	LegacyAliases map[string]string `yaml:"legacy_aliases" json:"legacy_aliases"`
}

// Aliases returns the sorted alias names.
func (r *Registry) Aliases() []string {
	names := make([]string, 0, len(r.Models))
	for name := range r.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseRegistry decodes a registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "failed to parse model registry")
	}
	if r.Models == nil {
		r.Models = map[string]Entry{}
	}
	if r.LegacyAliases == nil {
		r.LegacyAliases = map[string]string{}
	}
	for alias, e := range r.Models {
		if e.Provider == "" || e.ID == "" {
			return nil, errors.Errorf("model alias '%s' needs both provider and id", alias)
		}
	}
	return &r, nil
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRegistryYAML)
	if err != nil {
		panic(errors.Wrap(err, "embedded model registry is invalid"))
	}
	return r
}

// DefaultRegistryYAML returns the built-in registry document, for seeding a
// user registry file.
func DefaultRegistryYAML() []byte {
	return append([]byte(nil), defaultRegistryYAML...)
}

// Store loads the registry file once and serves it until Reload.
type Store struct {
	path string

	mu       sync.RWMutex
	registry *Registry
}

// NewStore creates a store for the registry file at path. An empty path
// always yields the built-in registry.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Registry returns the loaded registry, reading the file on first use. A
// missing file falls back to the built-in registry; a broken one is logged
// and also falls back.
func (s *Store) Registry(ctx context.Context) *Registry {
	s.mu.RLock()
	r := s.registry
	s.mu.RUnlock()
	if r != nil {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		s.registry = s.load(ctx)
	}
	return s.registry
}

// Reload discards the loaded registry.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = nil
}

func (s *Store) load(ctx context.Context) *Registry {
	if s.path == "" {
		return DefaultRegistry()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithError(err).WithField("path", s.path).Warn("failed to read model registry, using built-in defaults")
		}
		return DefaultRegistry()
	}

	r, err := ParseRegistry(data)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", s.path).Warn("invalid model registry, using built-in defaults")
		return DefaultRegistry()
	}
	return r
}
