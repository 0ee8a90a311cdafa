// Package ratelimit paces outbound calls per API class. Each class keeps
// the time of its last request; callers block until the class minimum
// interval plus a random jitter has elapsed since then.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Class identifies an independent pacing budget.
type Class string

const (
	Search Class = "search"
	Web    Class = "web"
	LLM    Class = "llm"
)

// Clock abstracts time so spacing can be verified without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Budget is the pacing state for one class.
type Budget struct {
	MinInterval time.Duration
	Jitter      time.Duration

	mu   sync.Mutex
	last time.Time
}

// Pacer holds one Budget per class. It is safe for concurrent use and is
// meant to be shared by every request in the process.
type Pacer struct {
	clock   Clock
	budgets map[Class]*Budget
	jitter  func(max time.Duration) time.Duration
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Pacer) { p.clock = c }
}

// WithJitterFunc replaces the uniform jitter source.
func WithJitterFunc(fn func(max time.Duration) time.Duration) Option {
	return func(p *Pacer) { p.jitter = fn }
}

// WithClass overrides the interval and jitter of one class.
func WithClass(c Class, minInterval, jitter time.Duration) Option {
	return func(p *Pacer) {
		p.budgets[c] = &Budget{MinInterval: minInterval, Jitter: jitter}
	}
}

// New creates a Pacer with the default budgets: search 1s, web 0.5s,
// llm 1.5s, each with up to 0.5s of jitter.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		clock: SystemClock,
		budgets: map[Class]*Budget{
			Search: {MinInterval: time.Second, Jitter: 500 * time.Millisecond},
			Web:    {MinInterval: 500 * time.Millisecond, Jitter: 500 * time.Millisecond},
			LLM:    {MinInterval: 1500 * time.Millisecond, Jitter: 500 * time.Millisecond},
		},
		jitter: uniformJitter,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FromMillis builds a Pacer from millisecond settings as found in config.
func FromMillis(searchMs, webMs, llmMs, jitterMs int, opts ...Option) *Pacer {
	j := time.Duration(jitterMs) * time.Millisecond
	base := []Option{
		WithClass(Search, time.Duration(searchMs)*time.Millisecond, j),
		WithClass(Web, time.Duration(webMs)*time.Millisecond, j),
		WithClass(LLM, time.Duration(llmMs)*time.Millisecond, j),
	}
	return New(append(base, opts...)...)
}

// Wait blocks until a call in class c may proceed. The class lock is held
// across the sleep so concurrent callers are serialised.
func (p *Pacer) Wait(ctx context.Context, c Class) error {
	b, ok := p.budgets[c]
	if !ok {
		return eris.Errorf("ratelimit: unknown class %q", c)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.last.IsZero() {
		wait := b.MinInterval + p.jitter(b.Jitter) - p.clock.Now().Sub(b.last)
		if wait > 0 {
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return eris.Wrapf(err, "ratelimit: wait %s", c)
			}
		}
	} else if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "ratelimit: wait %s", c)
	}
	b.last = p.clock.Now()
	return nil
}

// Interval returns the configured minimum interval for c.
func (p *Pacer) Interval(c Class) time.Duration {
	if b, ok := p.budgets[c]; ok {
		return b.MinInterval
	}
	return 0
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
