// Package scrape downloads vendor pages and distils their main text.
package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/model"
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	skip     *SkipList
	scrapers []Scraper
	minChars int
}

// NewChain creates a Chain with the given skip list and scrapers.
// Scrapers are tried in order; the first successful result is returned.
func NewChain(skip *SkipList, scrapers ...Scraper) *Chain {
	if skip == nil {
		skip = NewSkipList(nil, nil)
	}
	return &Chain{
		skip:     skip,
		scrapers: scrapers,
		minChars: model.MinDocumentChars,
	}
}

// WithMinChars sets the distilled-text length a result needs to be
// accepted.
func (c *Chain) WithMinChars(n int) *Chain {
	if n > 0 {
		c.minChars = n
	}
	return c
}

// Scrape tries each scraper in order for a single URL. A result is accepted
// once its distilled text reaches the minimum length; a thin page falls
// through to the next scraper. Returns an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.skip.Skipped(targetURL) {
		return nil, eris.Errorf("scrape: url on skip list: %s", targetURL)
	}

	var lastErr error
	var blocked *BlockedError
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		switch {
		case err == nil && result != nil && result.distil(c.minChars):
			metrics.Fetches.WithLabelValues(s.Name(), metrics.OK).Inc()
			return result, nil
		case err == nil && result != nil:
			metrics.Fetches.WithLabelValues(s.Name(), metrics.Empty).Inc()
			lastErr = eris.Errorf("%s: distilled text under %d chars", s.Name(), c.minChars)
		case errors.As(err, &blocked):
			metrics.Fetches.WithLabelValues(s.Name(), metrics.Blocked).Inc()
			lastErr = err
		case err != nil:
			metrics.Fetches.WithLabelValues(s.Name(), metrics.Error).Inc()
			lastErr = err
		}
		if lastErr != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(lastErr),
			)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}
