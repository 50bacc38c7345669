package llm

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

const (
	// DefaultAttempts is the number of tries per call, including the first.
	DefaultAttempts = 3
	// DefaultBaseDelay is doubled per retry: 2s, 4s, 8s...
	DefaultBaseDelay = time.Second
)

type clientKey struct {
	provider string
	apiKey   string
}

// Dispatcher routes requests to provider clients.
type Dispatcher struct {
	factories map[string]Factory
	attempts  int
	baseDelay time.Duration
	rpm       int

	mu       sync.Mutex
	clients  map[clientKey]llmtypes.Provider
	limiters map[string]*rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFactories replaces the provider table.
func WithFactories(factories map[string]Factory) Option {
	return func(d *Dispatcher) { d.factories = factories }
}

// WithAttempts sets the maximum tries per call. Values below one mean one.
func WithAttempts(n int) Option {
	return func(d *Dispatcher) { d.attempts = n }
}

// WithBaseDelay sets the backoff unit.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) { d.baseDelay = delay }
}

// WithRequestsPerMinute paces requests to each provider, retries included.
// Zero or less means unlimited.
func WithRequestsPerMinute(rpm int) Option {
	return func(d *Dispatcher) { d.rpm = rpm }
}

// NewDispatcher creates a dispatcher with the built-in providers.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		factories: DefaultFactories(nil),
		attempts:  DefaultAttempts,
		baseDelay: DefaultBaseDelay,
		clients:   make(map[clientKey]llmtypes.Provider),
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.attempts < 1 {
		d.attempts = 1
	}
	return d
}

// Provider returns the cached client for name, building it on first use.
func (d *Dispatcher) Provider(ctx context.Context, name string) (llmtypes.Provider, error) {
	factory, ok := d.factories[name]
	if !ok {
		return nil, errors.Errorf("unknown provider '%s'", name)
	}

	apiKey := ""
	if factory.APIKey != nil {
		apiKey = factory.APIKey()
	}
	if apiKey == "" && factory.KeyEnvVar != "" {
		e := llmtypes.NewError(llmtypes.ErrAuthentication, name, 0, errors.Errorf("%s is not set", factory.KeyEnvVar))
		e.KeyEnvVar = factory.KeyEnvVar
		return nil, e
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := clientKey{provider: name, apiKey: apiKey}
	if client, ok := d.clients[key]; ok {
		return client, nil
	}
	client, err := factory.New(ctx, apiKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s client", name)
	}
	d.clients[key] = client
	return client, nil
}

// Call sends req to the named provider. Rate limits, server errors and
// network failures are retried with exponential backoff; everything else
// fails immediately. Failures are *llmtypes.Error unless ctx was cancelled.
func (d *Dispatcher) Call(ctx context.Context, provider string, req llmtypes.Request) (string, error) {
	ctx, span := telemetry.Tracer("skillet.llm").Start(ctx, "llm.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", req.Model),
	)

	client, err := d.Provider(ctx, provider)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	log := logger.G(ctx).WithField("provider", provider).WithField("model", req.Model)

	var (
		text     string
		attempts int
	)
	err = retry.Do(
		func() error {
			if err := d.wait(ctx, provider); err != nil {
				return err
			}
			attempts++
			var callErr error
			text, callErr = client.Call(ctx, req)
			return llmtypes.Classify(provider, callErr)
		},
		retry.RetryIf(llmtypes.IsRetryable),
		retry.Attempts(uint(d.attempts)),
		retry.DelayType(d.backoff),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).
				WithField("attempt", n+1).
				WithField("max_attempts", d.attempts).
				WithField("delay", d.backoff(n, err, nil)).
				Warn("retrying LLM call")
		}),
	)
	if err != nil {
		var e *llmtypes.Error
		if errors.As(err, &e) {
			e.Attempts = attempts
		}
		span.RecordError(err)
		return "", err
	}

	log.WithField("attempts", attempts).Debug("LLM call succeeded")
	return text, nil
}

// wait blocks until the provider's limiter admits one request.
func (d *Dispatcher) wait(ctx context.Context, provider string) error {
	if d.rpm <= 0 {
		return nil
	}
	d.mu.Lock()
	limiter, ok := d.limiters[provider]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(d.rpm)/60.0), 1)
		d.limiters[provider] = limiter
	}
	d.mu.Unlock()
	return limiter.Wait(ctx)
}

// backoff waits 2^attempt base delays, with attempt counted from one.
func (d *Dispatcher) backoff(n uint, _ error, _ *retry.Config) time.Duration {
	return d.baseDelay << (n + 1)
}
