package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/event-planner/internal/extract"
	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/rank"
	"github.com/sells-group/event-planner/internal/search"
	"github.com/sells-group/event-planner/internal/strategy"
)

// Defaults for an Orchestrator.
const (
	DefaultQuota       = 5
	DefaultMaxHits     = 10
	DefaultFanoutWidth = 4
	DefaultEnrichWidth = 3
	DefaultTimeout     = 90 * time.Second

	// venueMinimum triggers the broader venue fallback query.
	venueMinimum = 3
)

// Orchestrator composes search, fetch, extract, rank and enrich.
type Orchestrator struct {
	search  search.Searcher
	fetch   Fetcher
	extract Extractor
	enrich  Enricher

	quota       int
	maxHits     int
	fanoutWidth int
	enrichWidth int
	timeout     time.Duration

	cache    Cache
	cacheTTL time.Duration

	onState func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithQuota sets how many accepted providers stop the query loop.
func WithQuota(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.quota = n
		}
	}
}

// WithMaxHits sets how many search hits are fanned out per query.
func WithMaxHits(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxHits = n
		}
	}
}

// WithWidths sets the fetch+extract and enrichment pool widths.
func WithWidths(fanout, enrich int) Option {
	return func(o *Orchestrator) {
		if fanout > 0 {
			o.fanoutWidth = fanout
		}
		if enrich > 0 {
			o.enrichWidth = enrich
		}
	}
}

// WithTimeout bounds a whole request.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCache enables result caching. Empty results are never cached.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// New creates an Orchestrator.
func New(s search.Searcher, f Fetcher, x Extractor, e Enricher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		search:      s,
		fetch:       f,
		extract:     x,
		enrich:      e,
		quota:       DefaultQuota,
		maxHits:     DefaultMaxHits,
		fanoutWidth: DefaultFanoutWidth,
		enrichWidth: DefaultEnrichWidth,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the per-request state.
type run struct {
	o     *Orchestrator
	st    strategy.Strategy
	req   strategy.Request
	role  extract.Role
	acc   *accumulator
	log   *zap.Logger
	state State
}

func (r *run) transition(s State) {
	if r.state == s {
		return
	}
	r.log.Debug("discovery: state", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
	if r.o.onState != nil {
		r.o.onState(s)
	}
}

// Discover finds providers for one service request.
func (o *Orchestrator) Discover(ctx context.Context, req strategy.Request) Result {
	started := time.Now()
	st := strategy.Choose(req.Service)
	r := &run{
		o:   o,
		st:  st,
		req: req,
		log: zap.L().With(
			zap.String("service", req.Service),
			zap.String("strategy", st.Kind.String()),
			zap.String("location", req.Location),
		),
	}
	if st.Kind == strategy.Venue {
		r.role = extract.RoleVenue
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	key := CacheKey(req)
	if cached, ok := o.cached(ctx, key); ok {
		r.log.Info("discovery: cache hit", zap.Int("providers", len(cached)))
		return Result{Providers: cached, State: StateDone, Cached: true}
	}

	res := r.execute(ctx)
	res.Partial = ctx.Err() != nil
	metrics.ObserveDiscovery(st.Kind.String(), string(res.State), started)
	r.log.Info("discovery: finished",
		zap.String("state", string(res.State)),
		zap.Int("providers", len(res.Providers)),
		zap.Bool("partial", res.Partial),
		zap.Duration("elapsed", time.Since(started)),
	)

	// Only complete runs are cached.
	if res.Err == nil && !res.Partial && o.cache != nil {
		if err := o.cache.SetCachedDiscovery(context.WithoutCancel(ctx), key, res.Providers, o.cacheTTL); err != nil {
			r.log.Warn("discovery: cache write failed", zap.Error(err))
		}
	}
	return res
}

func (o *Orchestrator) cached(ctx context.Context, key string) ([]model.Provider, bool) {
	if o.cache == nil {
		return nil, false
	}
	providers, ok, err := o.cache.GetCachedDiscovery(ctx, key)
	if err != nil {
		zap.L().Warn("discovery: cache read failed", zap.Error(err))
		return nil, false
	}
	return providers, ok && len(providers) > 0
}

func (r *run) execute(ctx context.Context) Result {
	r.transition(StatePlanning)
	quota := r.o.quota
	if l := r.st.Limit(); l > quota {
		quota = l
	}
	r.acc = newAccumulator(quota)

	for _, q := range r.st.Queries(r.req) {
		if r.acc.full() || ctx.Err() != nil {
			break
		}
		r.runQuery(ctx, q)
	}

	if r.st.Kind == strategy.Venue && r.acc.count() < venueMinimum && ctx.Err() == nil {
		r.log.Debug("discovery: venue fallback", zap.Int("found", r.acc.count()))
		r.runQuery(ctx, r.st.FallbackQuery(r.req))
	}

	ranked := rank.Rank(r.acc.providers(), r.st.Limit())
	if len(ranked) == 0 {
		r.transition(StateEmpty)
		return Result{State: StateEmpty, Err: &EmptyResultError{Service: r.req.Service, Location: r.req.Location}}
	}

	r.transition(StateEnriching)
	enriched := r.enrichAll(ctx, ranked)

	if r.st.Kind == strategy.Decoration {
		enriched = r.withOnlineSection(ctx, enriched)
	}

	r.transition(StateDone)
	return Result{Providers: enriched, State: StateDone}
}

// runQuery searches one query and fans its hits out to fetch+extract.
func (r *run) runQuery(ctx context.Context, q model.SearchQuery) {
	r.transition(StateSearching)
	hits := r.o.search.Search(ctx, q.Text, r.o.maxHits)
	if r.st.SingleSite() && q.PreferredSite != "" {
		hits = onHost(hits, q.PreferredSite)
	}
	if len(hits) == 0 {
		r.log.Debug("discovery: no hits", zap.String("query", q.Text))
		return
	}
	r.transition(StateExtracting)
	r.fanOut(ctx, hits)
}

// fanOut fetches and extracts hits with a bounded pool. The first worker to
// fill the quota cancels the rest.
func (r *run) fanOut(ctx context.Context, hits []model.SearchHit) {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(fctx)
	g.SetLimit(r.o.fanoutWidth)

	for _, h := range hits {
		if gctx.Err() != nil || r.acc.full() {
			break
		}
		if r.o.fetch.Skipped(h.URL) {
			continue
		}
		url := h.URL
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			doc, ok := r.o.fetch.Fetch(gctx, url)
			if !ok || !doc.Usable() {
				return nil
			}
			res := r.o.extract.Extract(gctx, r.role, doc, r.req)
			if !res.OK() {
				return nil
			}
			accepted, full := r.acc.add(gctx, res.Provider)
			if accepted {
				r.log.Debug("discovery: accepted", zap.String("provider", res.Provider.Name), zap.String("url", url))
			}
			if full {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
}

// enrichAll runs enrichment preserving input order. Venues are enriched
// serially to keep rate pressure low.
func (r *run) enrichAll(ctx context.Context, providers []model.Provider) []model.Provider {
	out := make([]model.Provider, len(providers))
	copy(out, providers)
	if r.o.enrich == nil {
		return out
	}

	if r.st.Kind == strategy.Venue {
		for i := range out {
			out[i] = r.o.enrich.Enrich(ctx, out[i], r.st, r.req)
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.o.enrichWidth)
	for i := range out {
		g.Go(func() error {
			out[i] = r.o.enrich.Enrich(gctx, out[i], r.st, r.req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// withOnlineSection wraps offline providers in section headers and appends
// the known online retailers, found via search or defaulted.
func (r *run) withOnlineSection(ctx context.Context, offline []model.Provider) []model.Provider {
	out := make([]model.Provider, 0, len(offline)+8)
	out = append(out, model.Header(OfflineHeader))
	out = append(out, offline...)
	out = append(out, model.Header(OnlineHeader))

	retailers := r.st.OnlineRetailers()
	var hits []model.SearchHit
	if ctx.Err() == nil {
		hits = r.o.search.Search(ctx, r.st.OnlineQuery(r.req).Text, r.o.maxHits)
	}
	for _, rt := range retailers {
		p := model.Provider{
			Name:        rt.Name,
			Description: rt.Description,
			ServiceType: r.req.Service,
		}
		if h, ok := firstOnHost(hits, rt.Domain); ok {
			p.Website = h.URL
			p.SourceURL = h.URL
		} else {
			p.Website = rt.DefaultURL(r.req.Location)
			p.Defaulted = true
		}
		out = append(out, p)
	}
	return out
}

func onHost(hits []model.SearchHit, domain string) []model.SearchHit {
	out := hits[:0:0]
	for _, h := range hits {
		if search.HostMatches(h.URL, domain) {
			out = append(out, h)
		}
	}
	return out
}

func firstOnHost(hits []model.SearchHit, domain string) (model.SearchHit, bool) {
	for _, h := range hits {
		if search.HostMatches(h.URL, domain) {
			return h, true
		}
	}
	return model.SearchHit{}, false
}
