package intent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/pkg/errors"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/models"
	"github.com/jingkaihe/skillet/pkg/schema"
	"github.com/jingkaihe/skillet/pkg/skills"
)

// Environment overrides for the routing model.
const (
	ProviderEnvVar = "SKILLET_INTENT_PROVIDER"
	ModelEnvVar    = "SKILLET_INTENT_MODEL"
)

const (
	defaultProvider  = "anthropic"
	defaultModel     = "claude-haiku-latest"
	defaultMaxTokens = 1024
)

//go:embed prompt.tmpl
var promptTemplate string

// Dispatcher sends a prompt to a provider.
type Dispatcher interface {
	Call(ctx context.Context, provider string, req llmtypes.Request) (string, error)
}

// Catalog lists skills.
type Catalog interface {
	Discover(ctx context.Context) []*skills.Descriptor
}

// Router turns utterances into intents.
type Router struct {
	dispatcher Dispatcher
	catalog    Catalog
	resolver   *models.Resolver
	provider   string
	model      string

	mu      sync.Mutex
	system  string
	compile sync.Once
	schema  *schema.Compiled
	err     error
}

// Option configures a Router.
type Option func(*Router)

// WithModel sets the routing provider and model. Empty values keep the
// defaults. Environment overrides still apply.
func WithModel(provider, model string) Option {
	return func(r *Router) {
		if provider != "" {
			r.provider = provider
		}
		if model != "" {
			r.model = model
		}
	}
}

// WithResolver resolves the routing model alias.
func WithResolver(res *models.Resolver) Option {
	return func(r *Router) { r.resolver = res }
}

// NewRouter creates a router.
func NewRouter(dispatcher Dispatcher, catalog Catalog, opts ...Option) *Router {
	r := &Router{
		dispatcher: dispatcher,
		catalog:    catalog,
		provider:   defaultProvider,
		model:      defaultModel,
	}
	for _, opt := range opts {
		opt(r)
	}
	if v := os.Getenv(ProviderEnvVar); v != "" {
		r.provider = v
	}
	if v := os.Getenv(ModelEnvVar); v != "" {
		r.model = v
	}
	return r
}

// Route classifies utterance with one LLM call.
func (r *Router) Route(ctx context.Context, utterance string) (*Intent, error) {
	system, err := r.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	provider, model := r.provider, r.model
	if r.resolver != nil {
		resolved := r.resolver.Resolve(ctx, model)
		model = resolved.ID
		if resolved.Provider != "" {
			provider = resolved.Provider
		}
	}

	temp := 0.0
	raw, err := r.dispatcher.Call(ctx, provider, llmtypes.Request{
		System:      system,
		User:        utterance,
		Model:       model,
		MaxTokens:   defaultMaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	intent, err := r.Parse(raw)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("action", intent.Action).WithField("confidence", intent.Confidence).Debug("routed request")
	return intent, nil
}

// Parse validates a raw model response, tolerating markdown fences.
func (r *Router) Parse(raw string) (*Intent, error) {
	compiled, err := r.intentSchema()
	if err != nil {
		return nil, err
	}

	body := StripFences(raw)
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Reason: "response is not valid JSON", Details: []string{err.Error()}}
	}
	if problems := compiled.Validate(doc); len(problems) > 0 {
		return nil, &ParseError{Raw: raw, Reason: "response does not match the intent schema", Details: problems}
	}

	var intent Intent
	if err := json.Unmarshal([]byte(body), &intent); err != nil {
		return nil, &ParseError{Raw: raw, Reason: "response is not a valid intent", Details: []string{err.Error()}}
	}
	if intent.Parameters == nil {
		intent.Parameters = map[string]any{}
	}
	if !intent.IsConfident() {
		intent.Alternatives = alternatives(&intent)
	}
	return &intent, nil
}

// Reset drops the cached catalog listing.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.system = ""
}

func (r *Router) intentSchema() (*schema.Compiled, error) {
	r.compile.Do(func() {
		r.schema, r.err = schema.For[Intent]()
	})
	return r.schema, r.err
}

func (r *Router) systemPrompt(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.system != "" {
		return r.system, nil
	}

	compiled, err := r.intentSchema()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("intent").Parse(promptTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse intent prompt")
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Skills":  r.catalog.Discover(ctx),
		"Actions": Actions,
		"Schema":  string(compiled.JSON),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render intent prompt")
	}
	r.system = buf.String()
	return r.system, nil
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
