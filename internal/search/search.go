// Package search issues web-search queries with site filtering, pacing,
// retry and a circuit breaker around the backend.
package search

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/ratelimit"
	"github.com/sells-group/event-planner/internal/resilience"
)

// Searcher is the search operation consumed by discovery and enrichment.
type Searcher interface {
	Search(ctx context.Context, query string, topN int) []model.SearchHit
}

var siteClause = regexp.MustCompile(`(?i)(?:^|\s)site:(\S+)`)

// SiteOf returns the domain of the first site: clause in query, or "".
func SiteOf(query string) string {
	m := siteClause.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(strings.Trim(m[1], `"'`)), "www.")
}

// HostMatches reports whether rawURL is hosted on domain or one of its
// subdomains.
func HostMatches(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Client is the search client.
type Client struct {
	backend    Backend
	pacer      *ratelimit.Pacer
	policy     resilience.Policy
	breaker    *resilience.Breaker
	timeout    time.Duration
	shortRetry time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each backend attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBreaker replaces the default breaker (5 failures, 30s).
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithShortRetry sets the delay before the single retry allowed for
// non-rate-limit failures.
func WithShortRetry(d time.Duration) Option {
	return func(c *Client) { c.shortRetry = d }
}

// New creates a search client over backend.
func New(backend Backend, pacer *ratelimit.Pacer, policy resilience.Policy, opts ...Option) *Client {
	if pacer == nil {
		pacer = ratelimit.New()
	}
	c := &Client{
		backend:    backend,
		pacer:      pacer,
		policy:     policy,
		breaker:    resilience.NewBreaker("search:"+backend.Name(), 5, 30*time.Second),
		timeout:    15 * time.Second,
		shortRetry: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search runs query and returns up to topN hits in backend order. When the
// query carries a site: clause only hits on that host survive. Failures
// are logged and yield an empty result.
func (c *Client) Search(ctx context.Context, query string, topN int) []model.SearchHit {
	if topN <= 0 {
		topN = 10
	}
	site := SiteOf(query)
	log := zap.L().With(zap.String("backend", c.backend.Name()), zap.String("query", query))

	hits, err := resilience.DoVal(ctx, c.retryPolicy(query), func(ctx context.Context) ([]model.SearchHit, error) {
		if err := c.pacer.Wait(ctx, ratelimit.Search); err != nil {
			return nil, err
		}
		return resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]model.SearchHit, error) {
			actx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return c.backend.Search(actx, query, site, topN)
		})
	})
	if err != nil {
		metrics.Searches.WithLabelValues(c.backend.Name(), metrics.Error).Inc()
		log.Warn("search: query failed", zap.Error(err))
		return nil
	}

	if site != "" {
		kept := hits[:0:0]
		for _, h := range hits {
			if HostMatches(h.URL, site) {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > topN {
		hits = hits[:topN]
	}

	outcome := metrics.OK
	if len(hits) == 0 {
		outcome = metrics.Empty
	}
	metrics.Searches.WithLabelValues(c.backend.Name(), outcome).Inc()
	log.Debug("search: results", zap.Int("hits", len(hits)))
	return hits
}

// retryPolicy allows the full attempt budget with exponential backoff for
// rate limits and a single short retry for anything else.
func (c *Client) retryPolicy(query string) resilience.Policy {
	p := c.policy
	var mu sync.Mutex
	otherRetries := 0
	rateLimited := false

	p.ShouldRetry = func(err error) bool {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		if resilience.IsRateLimit(err) {
			rateLimited = true
			return true
		}
		rateLimited = false
		if otherRetries >= 1 {
			return false
		}
		otherRetries++
		return true
	}

	retryLog := resilience.RetryLogger("search", query)
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		retryLog(attempt, delay, err)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = resilience.SleepContext
	}
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		short := !rateLimited
		mu.Unlock()
		if short {
			d = c.shortRetry
		}
		return sleep(ctx, d)
	}
	return p
}
