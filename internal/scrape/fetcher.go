package scrape

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/ratelimit"
)

// SourceMarker prefixes every fetched document so the extractor can tell
// which page the text came from.
const SourceMarker = "Source URL: "

// Fetcher is the content fetcher used by discovery: skip list, global web
// pacing, per-host politeness, then the scraper chain.
type Fetcher struct {
	chain *Chain
	skip  *SkipList
	pacer *ratelimit.Pacer

	hostRate  rate.Limit
	hostBurst int
	mu        sync.Mutex
	hosts     map[string]*rate.Limiter

	now func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHostRate sets the per-host request rate (default 2/s, burst 1).
func WithHostRate(r rate.Limit, burst int) FetcherOption {
	return func(f *Fetcher) {
		f.hostRate = r
		f.hostBurst = burst
	}
}

// NewFetcher creates a Fetcher over chain.
func NewFetcher(chain *Chain, pacer *ratelimit.Pacer, opts ...FetcherOption) *Fetcher {
	if pacer == nil {
		pacer = ratelimit.New()
	}
	f := &Fetcher{
		chain:     chain,
		skip:      chain.skip,
		pacer:     pacer,
		hostRate:  rate.Limit(2),
		hostBurst: 1,
		hosts:     make(map[string]*rate.Limiter),
		now:       time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Skipped reports whether rawURL is on the skip list.
func (f *Fetcher) Skipped(rawURL string) bool {
	return f.skip.Skipped(rawURL)
}

// Fetch downloads rawURL and returns its distilled text prefixed with the
// source marker. ok is false for skipped URLs, fetch failures and pages
// with too little text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (doc model.FetchedDocument, ok bool) {
	log := zap.L().With(zap.String("url", rawURL))
	if f.skip.Skipped(rawURL) {
		log.Debug("fetch: skipped")
		return doc, false
	}

	if err := f.pacer.Wait(ctx, ratelimit.Web); err != nil {
		return doc, false
	}
	if err := f.hostLimiter(rawURL).Wait(ctx); err != nil {
		return doc, false
	}

	res, err := f.chain.Scrape(ctx, rawURL)
	if err != nil {
		log.Debug("fetch: no usable content", zap.Error(err))
		return doc, false
	}

	log.Debug("fetch: ok",
		zap.String("source", res.Source),
		zap.String("step", res.Step),
		zap.Int("chars", len(res.Text)),
	)
	return model.FetchedDocument{
		URL:       rawURL,
		Text:      SourceMarker + rawURL + "\n\n" + res.Text,
		Source:    res.Source,
		FetchedAt: f.now().UTC(),
	}, true
}

func (f *Fetcher) hostLimiter(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.hosts[host]
	if !ok {
		l = rate.NewLimiter(f.hostRate, f.hostBurst)
		f.hosts[host] = l
	}
	return l
}
