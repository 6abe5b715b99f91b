// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// RetryStrategy computes the delay before a retry attempt.
type RetryStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay after every attempt, capped at Max
// when Max is set.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (eb ExponentialBackoff) NextDelay(attempt int) time.Duration {
	b := eb.backOff()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// backOff returns an unjittered exponential schedule without an elapsed
// time limit.
func (eb ExponentialBackoff) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = eb.Initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = eb.Max
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.Reset()
	return b
}

// strategyBackOff drives an arbitrary RetryStrategy as a backoff.BackOff.
type strategyBackOff struct {
	strategy RetryStrategy
	attempt  int
}

func (s *strategyBackOff) NextBackOff() time.Duration {
	s.attempt++
	return s.strategy.NextDelay(s.attempt)
}

func (s *strategyBackOff) Reset() {
	s.attempt = 0
}

// RetryPolicy bounds how often a failed execution is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Strategy    RetryStrategy
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	var b backoff.BackOff
	if eb, ok := p.Strategy.(ExponentialBackoff); ok {
		b = eb.backOff()
	} else {
		b = &strategyBackOff{strategy: p.Strategy}
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// RetryingBackend re-executes its wrapped backend while it reports
// walk.ErrBackendUnavailable. All other errors are returned at once.
type RetryingBackend struct {
	walk.Backend
	policy RetryPolicy
	log    zerolog.Logger
}

// WithRetry wraps b with policy. A policy with fewer than two attempts
// returns b unchanged.
func WithRetry(b walk.Backend, policy RetryPolicy, log zerolog.Logger) walk.Backend {
	if policy.MaxAttempts < 2 {
		return b
	}
	if policy.Strategy == nil {
		policy.Strategy = ExponentialBackoff{Initial: time.Second}
	}
	return &RetryingBackend{
		Backend: b,
		policy:  policy,
		log:     log.With().Str("component", "retry").Str("backend", b.Name()).Logger(),
	}
}

func (r *RetryingBackend) Execute(ctx context.Context, spec walk.CircuitSpec) (walk.Histogram, error) {
	var (
		hist     walk.Histogram
		lastErr  error
		attempts int
	)
	operation := func() error {
		attempts++
		h, err := r.Backend.Execute(ctx, spec)
		if err != nil {
			if !errors.Is(err, walk.ErrBackendUnavailable) {
				return backoff.Permanent(err)
			}
			lastErr = err
			return err
		}
		hist = h
		return nil
	}
	notify := func(err error, delay time.Duration) {
		r.log.Warn().Err(err).Int("attempt", attempts).Dur("delay", delay).Msg("backend unavailable, retrying")
	}

	err := backoff.RetryNotify(operation, r.policy.backOff(ctx), notify)
	switch {
	case err == nil:
		return hist, nil
	case lastErr != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil, fmt.Errorf("retry aborted: %w", errors.Join(ctx.Err(), lastErr))
	case errors.Is(err, walk.ErrBackendUnavailable):
		return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}
	return nil, err
}
