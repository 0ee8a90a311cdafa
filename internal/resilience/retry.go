// Package resilience holds the retry policy and circuit breaker shared by
// every outbound call wrapper (search, fetch, LLM).
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy is the retry policy for one class of outbound call. The delay
// before retry n (0-based) is Base * 2^n plus a uniform jitter in
// [0, Jitter), capped at MaxBackoff.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	Base        time.Duration
	Jitter      time.Duration
	MaxBackoff  time.Duration

	// ShouldRetry decides whether err is worth another attempt. Defaults
	// to IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry runs before each backoff sleep with the 1-based attempt that
	// just failed and the delay about to be slept.
	OnRetry func(attempt int, delay time.Duration, err error)

	// Sleep waits for d or until ctx is done. Defaults to a timer; tests
	// replace it to observe delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy used for rate-limited APIs: three
// attempts with (2^attempt)s + up to 1s of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        time.Second,
		Jitter:      time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// NewPolicy builds a policy from millisecond config values, keeping
// defaults for non-positive inputs.
func NewPolicy(maxAttempts, baseMs, jitterMs int) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if baseMs > 0 {
		p.Base = time.Duration(baseMs) * time.Millisecond
	}
	if jitterMs >= 0 {
		p.Jitter = time.Duration(jitterMs) * time.Millisecond
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.ShouldRetry(err) || attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.Backoff(attempt)
		if hint := RetryAfter(err); hint > delay {
			delay = min(hint, p.MaxBackoff)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if serr := p.Sleep(ctx, delay); serr != nil {
			break
		}
	}
	return zero, lastErr
}

// Backoff returns the delay before retry number attempt (0-based).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := float64(p.Base) * math.Pow(2, float64(attempt))
	if p.Jitter > 0 {
		delay += rand.Float64() * float64(p.Jitter)
	}
	if delay > float64(p.MaxBackoff) {
		delay = float64(p.MaxBackoff)
	}
	return time.Duration(delay)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}

// SleepContext sleeps for d unless ctx finishes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service, operation string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Bool("rate_limited", IsRateLimit(err)),
			zap.Error(err),
		)
	}
}
