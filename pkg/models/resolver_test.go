package models

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

const testRegistry = `models:
  claude-sonnet-latest:
    provider: anthropic
    id: claude-sonnet-4-XXX
  gpt-latest:
    provider: openai
    id: gpt-4.1
legacy_aliases:
  claude-sonnet: claude-sonnet-latest
`

type fakeProber struct {
	calls  []string
	result error
}

func (p *fakeProber) Probe(_ context.Context, model string) error {
	p.calls = append(p.calls, model)
	return p.result
}

func newTestResolver(t *testing.T, prober *fakeProber) *Resolver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o644))

	var opts []ResolverOption
	if prober != nil {
		opts = append(opts, WithProbing(func(context.Context, string) (llmtypes.Prober, error) {
			return prober, nil
		}))
	}
	return NewResolver(NewStore(path), opts...)
}

func notFound() error {
	return llmtypes.NewError(llmtypes.ErrBadRequest, "anthropic", 404, errors.New("model not found"))
}

func TestResolveAliasFallbackOnNotFound(t *testing.T) {
	prober := &fakeProber{result: notFound()}
	r := newTestResolver(t, prober)
	ctx := context.Background()

	first := r.Resolve(ctx, "claude-sonnet-latest")
	assert.Equal(t, Resolved{Provider: "anthropic", ID: "claude-sonnet-4-XXX"}, first)

	second := r.Resolve(ctx, "claude-sonnet-latest")
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"claude-sonnet-latest"}, prober.calls)
}

func TestResolveAliasAcceptedByProvider(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(t, prober)

	res := r.Resolve(context.Background(), "claude-sonnet-latest")
	assert.Equal(t, Resolved{Provider: "anthropic", ID: "claude-sonnet-latest"}, res)

	r.Resolve(context.Background(), "claude-sonnet-latest")
	assert.Len(t, prober.calls, 1)
}

func TestResolveOtherProbeErrorIsNotCached(t *testing.T) {
	prober := &fakeProber{result: llmtypes.NewError(llmtypes.ErrNetwork, "anthropic", 0, errors.New("offline"))}
	r := newTestResolver(t, prober)
	ctx := context.Background()

	assert.Equal(t, "claude-sonnet-4-XXX", r.Resolve(ctx, "claude-sonnet-latest").ID)
	assert.Equal(t, "claude-sonnet-4-XXX", r.Resolve(ctx, "claude-sonnet-latest").ID)
	assert.Len(t, prober.calls, 2)
}

func TestResolveLegacyAlias(t *testing.T) {
	prober := &fakeProber{result: notFound()}
	r := newTestResolver(t, prober)

	res := r.Resolve(context.Background(), "claude-sonnet")
	assert.Equal(t, "claude-sonnet-4-XXX", res.ID)
	assert.Equal(t, []string{"claude-sonnet-latest"}, prober.calls)
}

func TestResolveNonProbeProvider(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(t, prober)

	assert.Equal(t, Resolved{Provider: "openai", ID: "gpt-4.1"}, r.Resolve(context.Background(), "gpt-latest"))
	assert.Empty(t, prober.calls)
}

func TestResolveUnknownIsIdentity(t *testing.T) {
	r := newTestResolver(t, nil)
	assert.Equal(t, Resolved{ID: "claude-opus-4-1-20250805"}, r.Resolve(context.Background(), "claude-opus-4-1-20250805"))
}

func TestResolveWithoutProbing(t *testing.T) {
	r := newTestResolver(t, nil)
	assert.Equal(t, "claude-sonnet-4-XXX", r.Resolve(context.Background(), "claude-sonnet-latest").ID)
}

func TestResolveProberUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o644))
	r := NewResolver(NewStore(path), WithProbing(func(context.Context, string) (llmtypes.Prober, error) {
		return nil, errors.New("no key")
	}))
	assert.Equal(t, "claude-sonnet-4-XXX", r.Resolve(context.Background(), "claude-sonnet-latest").ID)
}

func TestStoreFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()

	missing := NewStore(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Contains(t, missing.Registry(ctx).Models, "claude-sonnet-latest")

	broken := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("models: [not, a, map]"), 0o644))
	assert.Contains(t, NewStore(broken).Registry(ctx).Models, "gpt-latest")
}

func TestStoreReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o644))

	store := NewStore(path)
	assert.Equal(t, []string{"claude-sonnet-latest", "gpt-latest"}, store.Registry(ctx).Aliases())

	require.NoError(t, os.WriteFile(path, []byte("models:\n  only:\n    provider: google\n    id: gemini\n"), 0o644))
	assert.Len(t, store.Registry(ctx).Aliases(), 2)

	store.Reload()
	assert.Equal(t, []string{"only"}, store.Registry(ctx).Aliases())
}

func TestParseRegistryRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseRegistry([]byte("models:\n  x:\n    provider: anthropic\n"))
	assert.ErrorContains(t, err, "needs both provider and id")
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for alias, canonical := range r.LegacyAliases {
		_, ok := r.Models[canonical]
		assert.True(t, ok, "legacy alias %s points at unknown %s", alias, canonical)
	}
}
