package models

import (
	"context"
	"sync"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
	"github.com/jingkaihe/skillet/pkg/logger"
)

// ProbeProvider is the only provider whose hosted aliases are probed.
const ProbeProvider = "anthropic"

// ProberSource returns a prober for a provider, typically the dispatcher's
// client for it.
type ProberSource func(ctx context.Context, provider string) (llmtypes.Prober, error)

// Resolved is the outcome of resolving an alias. Provider is empty when the
// name is not a registered alias.
type Resolved struct {
	Provider string
	ID       string
}

// Resolver translates aliases and caches every definitive answer.
type Resolver struct {
	store   *Store
	probers ProberSource
	probe   bool

	mu    sync.Mutex
	cache map[string]Resolved
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProbing enables liveness probes through src.
func WithProbing(src ProberSource) ResolverOption {
	return func(r *Resolver) {
		r.probers = src
		r.probe = src != nil
	}
}

// NewResolver creates a resolver over store. Without WithProbing, probe-capable
// aliases resolve straight to their registered ID.
func NewResolver(store *Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, cache: make(map[string]Resolved)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the concrete model for alias.
func (r *Resolver) Resolve(ctx context.Context, alias string) Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[alias]; ok {
		return cached
	}

	reg := r.store.Registry(ctx)
	name := alias
	if canonical, ok := reg.LegacyAliases[name]; ok {
		name = canonical
	}

	entry, ok := reg.Models[name]
	if !ok {
		res := Resolved{ID: alias}
		r.cache[alias] = res
		return res
	}

	registered := Resolved{Provider: entry.Provider, ID: entry.ID}
	if entry.Provider != ProbeProvider || !r.probe {
		r.cache[alias] = registered
		return registered
	}

	log := logger.G(ctx).WithField("alias", name).WithField("provider", entry.Provider)

	prober, err := r.probers(ctx, entry.Provider)
	if err != nil {
		log.WithError(err).Debug("model probe unavailable, using registered ID")
		return registered
	}

	err = prober.Probe(ctx, name)
	switch {
	case err == nil:
		res := Resolved{Provider: entry.Provider, ID: name}
		r.cache[alias] = res
		log.Debug("provider accepted model alias")
		return res
	case llmtypes.IsNotFound(err):
		r.cache[alias] = registered
		log.WithField("model", entry.ID).Info("model alias not available, using registered ID")
		return registered
	default:
		log.WithError(err).Warn("model probe failed, using registered ID")
		return registered
	}
}

// Reset clears the resolution cache and reloads the registry.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]Resolved)
	r.store.Reload()
}
