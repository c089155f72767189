// -----------------------------------------------------------------------
// Fallback Chain - ordered provider fallback shared by scraping and AI
// -----------------------------------------------------------------------

package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/models"
)

// Provider is one strategy able to produce R from P.
// Attempt either returns a (possibly empty) result or an error.
type Provider[P, R any] interface {
	Name() string
	Attempt(ctx context.Context, params P) (R, error)
}

// Terminal is implemented by providers that never fail, such as a rule-based fallback.
// A terminal provider is invoked synchronously, without an attempt deadline,
// so the chain always ends with its result.
type Terminal interface {
	Terminal() bool
}

// ErrAbandoned marks an attempt that outlived its deadline. The chain treats it as empty.
var ErrAbandoned = errors.New("attempt abandoned")

type funcProvider[P, R any] struct {
	name string
	fn   func(ctx context.Context, params P) (R, error)
}

func (f funcProvider[P, R]) Name() string { return f.name }

func (f funcProvider[P, R]) Attempt(ctx context.Context, params P) (R, error) {
	return f.fn(ctx, params)
}

// Func adapts a plain function into a Provider.
func Func[P, R any](name string, fn func(ctx context.Context, params P) (R, error)) Provider[P, R] {
	return funcProvider[P, R]{name: name, fn: fn}
}

// Result is the outcome of one chain run. When every provider was exhausted,
// Provider is models.NoProviderSucceeded and Value is the zero value.
type Result[R any] struct {
	Value    R
	Provider string
	Attempts []models.ProviderAttemptRecord
}

// Exhausted reports whether no provider produced a non-empty result.
func (r Result[R]) Exhausted() bool {
	return r.Provider == models.NoProviderSucceeded
}

// Observer is notified after every attempt, in order. index is 0-based.
type Observer func(index, total int, record models.ProviderAttemptRecord)

// Chain tries providers strictly in order and accepts the first non-empty result.
// A Chain holds no per-run state and is safe for concurrent Run calls.
type Chain[P, R any] struct {
	name           string
	providers      []Provider[P, R]
	isEmpty        func(R) bool
	attemptTimeout time.Duration
	logger         arbor.ILogger
}

// NewChain creates a chain. isEmpty decides whether a well-formed result counts as "no data".
func NewChain[P, R any](name string, logger arbor.ILogger, isEmpty func(R) bool, providers ...Provider[P, R]) *Chain[P, R] {
	ps := make([]Provider[P, R], 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain[P, R]{
		name:      name,
		providers: ps,
		isEmpty:   isEmpty,
		logger:    logger,
	}
}

// WithAttemptTimeout returns a copy of the chain that abandons any
// non-terminal attempt running longer than d. Zero disables the limit.
func (c *Chain[P, R]) WithAttemptTimeout(d time.Duration) *Chain[P, R] {
	clone := *c
	clone.attemptTimeout = d
	return &clone
}

// Providers returns the provider names in invocation order.
func (c *Chain[P, R]) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of providers.
func (c *Chain[P, R]) Len() int {
	return len(c.providers)
}

// Run executes the chain. It never returns an error: exhaustion is a normal Result.
func (c *Chain[P, R]) Run(ctx context.Context, params P) Result[R] {
	return c.RunObserved(ctx, params, nil)
}

// RunObserved is Run with a per-attempt callback, used for progress reporting.
func (c *Chain[P, R]) RunObserved(ctx context.Context, params P, observe Observer) Result[R] {
	result := Result[R]{
		Provider: models.NoProviderSucceeded,
		Attempts: make([]models.ProviderAttemptRecord, 0, len(c.providers)),
	}

	for i, provider := range c.providers {
		start := time.Now()
		value, err := c.attempt(ctx, provider, params)
		record := c.classify(provider.Name(), value, err)
		result.Attempts = append(result.Attempts, record)
		c.logAttempt(record, time.Since(start))

		if observe != nil {
			observe(i, len(c.providers), record)
		}

		if record.Outcome == models.AttemptSuccess {
			result.Value = value
			result.Provider = provider.Name()
			return result
		}
	}

	c.logger.Info().
		Str("chain", c.name).
		Int("providers", len(c.providers)).
		Msg("All providers exhausted without a result")

	return result
}

func (c *Chain[P, R]) attempt(ctx context.Context, provider Provider[P, R], params P) (R, error) {
	if t, ok := provider.(Terminal); ok && t.Terminal() {
		return invoke(context.WithoutCancel(ctx), provider, params)
	}

	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.attemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
	}
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	// Buffered so an abandoned attempt can still deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		v, err := invoke(attemptCtx, provider, params)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-attemptCtx.Done():
		var zero R
		return zero, fmt.Errorf("%w: %v", ErrAbandoned, attemptCtx.Err())
	}
}

func invoke[P, R any](ctx context.Context, provider Provider[P, R], params P) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.RecoverError(r)
		}
	}()
	return provider.Attempt(ctx, params)
}

func (c *Chain[P, R]) classify(name string, value R, err error) models.ProviderAttemptRecord {
	switch {
	case errors.Is(err, ErrAbandoned):
		return models.ProviderAttemptRecord{Provider: name, Outcome: models.AttemptEmpty, Detail: err.Error()}
	case err != nil:
		var perr *models.ProviderError
		if !errors.As(err, &perr) {
			perr = &models.ProviderError{Provider: name, Err: err}
		}
		return models.ProviderAttemptRecord{Provider: name, Outcome: models.AttemptError, Detail: perr.Error()}
	case c.isEmpty != nil && c.isEmpty(value):
		return models.ProviderAttemptRecord{Provider: name, Outcome: models.AttemptEmpty, Detail: "no results"}
	default:
		return models.ProviderAttemptRecord{Provider: name, Outcome: models.AttemptSuccess}
	}
}

func (c *Chain[P, R]) logAttempt(record models.ProviderAttemptRecord, elapsed time.Duration) {
	event := c.logger.Debug()
	if record.Outcome == models.AttemptError {
		event = c.logger.Warn()
	}
	event.
		Str("chain", c.name).
		Str("provider", record.Provider).
		Str("outcome", string(record.Outcome)).
		Str("detail", record.Detail).
		Str("duration", elapsed.String()).
		Msg("Provider attempt finished")
}
