package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/discovery"
	"github.com/sells-group/event-planner/internal/enrich"
	"github.com/sells-group/event-planner/internal/extract"
	"github.com/sells-group/event-planner/internal/invite"
	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/plan"
	"github.com/sells-group/event-planner/internal/ratelimit"
	"github.com/sells-group/event-planner/internal/resilience"
	"github.com/sells-group/event-planner/internal/scrape"
	"github.com/sells-group/event-planner/internal/search"
	"github.com/sells-group/event-planner/internal/store"
	anthropicpkg "github.com/sells-group/event-planner/pkg/anthropic"
	"github.com/sells-group/event-planner/pkg/google"
	"github.com/sells-group/event-planner/pkg/jina"
	"github.com/sells-group/event-planner/pkg/serper"
)

// initStore opens and migrates the configured store. Callers close it.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "planner.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// newPacer builds the process-wide pacer shared by every outbound client.
func newPacer() *ratelimit.Pacer {
	jitter := ms(cfg.RateLimit.JitterMs)
	return ratelimit.New(
		ratelimit.WithClass(ratelimit.Search, ms(cfg.RateLimit.SearchMs), jitter),
		ratelimit.WithClass(ratelimit.Web, ms(cfg.RateLimit.WebMs), jitter),
		ratelimit.WithClass(ratelimit.LLM, ms(cfg.RateLimit.LLMMs), jitter),
	)
}

func newPolicy() resilience.Policy {
	return resilience.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseMs, cfg.Retry.JitterMs)
}

func newLLM(pacer *ratelimit.Pacer, policy resilience.Policy) llm.Client {
	api := anthropicpkg.NewClient(cfg.Anthropic.Key)
	return llm.NewAnthropicClient(api, cfg.Anthropic, pacer, policy)
}

func newPlanner(client llm.Client) *plan.Generator {
	return plan.NewGenerator(client, plan.WithRescale(cfg.Plan.RescaleBudgets, cfg.Plan.Tolerance))
}

func newJina() jina.Client {
	opts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	return jina.NewClient(cfg.Jina.Key, opts...)
}

func newSearcher(jinaClient jina.Client, pacer *ratelimit.Pacer, policy resilience.Policy) (*search.Client, error) {
	var backend search.Backend
	switch cfg.Search.Provider {
	case "jina", "":
		backend = search.NewJinaBackend(jinaClient)
	case "serper":
		backend = search.NewSerperBackend(serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL)))
	default:
		return nil, eris.Errorf("unsupported search provider: %s", cfg.Search.Provider)
	}
	timeout := time.Duration(cfg.Search.TimeoutSecs) * time.Second
	return search.New(backend, pacer, policy, search.WithTimeout(timeout)), nil
}

// newFetcher builds the scraper chain: plain GET, optional headless
// Chrome, then the Jina reader.
func newFetcher(jinaClient jina.Client, pacer *ratelimit.Pacer) *scrape.Fetcher {
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(
			scrape.WithUserAgent(cfg.Fetch.UserAgent),
			scrape.WithMaxBytes(cfg.Fetch.MaxBytes),
			scrape.WithTimeout(cfg.Fetch.FetchTimeout()),
		),
	}
	if cfg.Fetch.Headless {
		scrapers = append(scrapers, scrape.NewHeadlessScraper(cfg.Fetch.UserAgent, cfg.Fetch.FetchTimeout()))
	}
	if cfg.Fetch.ReaderFallback && cfg.Jina.Key != "" {
		scrapers = append(scrapers, scrape.NewJinaAdapter(jinaClient))
	}
	chain := scrape.NewChain(scrape.NewSkipList(nil, nil), scrapers...).WithMinChars(cfg.Fetch.MinChars)
	return scrape.NewFetcher(chain, pacer)
}

// newDiscovery wires the full discovery pipeline. cache may be nil.
func newDiscovery(client llm.Client, pacer *ratelimit.Pacer, policy resilience.Policy, cache discovery.Cache) (*discovery.Orchestrator, error) {
	jinaClient := newJina()
	searcher, err := newSearcher(jinaClient, pacer, policy)
	if err != nil {
		return nil, err
	}
	fetcher := newFetcher(jinaClient, pacer)

	var enrichOpts []enrich.Option
	if cfg.Google.PlacesKey != "" {
		enrichOpts = append(enrichOpts, enrich.WithPlaces(google.NewClient(cfg.Google.PlacesKey)))
		zap.L().Info("google places rating enrichment enabled")
	}
	enricher := enrich.New(searcher, fetcher, client, enrichOpts...)
	extractor := extract.New(client, extract.WithContentBudget(cfg.Discovery.ContentBudget))

	maxHits := cfg.Discovery.MaxHits
	if maxHits <= 0 {
		maxHits = cfg.Search.TopN
	}
	opts := []discovery.Option{
		discovery.WithQuota(cfg.Discovery.Quota),
		discovery.WithMaxHits(maxHits),
		discovery.WithWidths(cfg.Discovery.FanoutWidth, cfg.Discovery.EnrichWidth),
		discovery.WithTimeout(cfg.Discovery.RequestTimeout()),
	}
	if cache != nil {
		opts = append(opts, discovery.WithCache(cache, cfg.Discovery.CacheTTL()))
	}
	return discovery.New(searcher, fetcher, extractor, enricher, opts...), nil
}

func newInviter(st store.Store, client llm.Client) *invite.Service {
	mailer := invite.NewSMTPMailer(invite.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	var opts []invite.Option
	if client != nil {
		opts = append(opts, invite.WithWriter(client))
	}
	return invite.NewService(invite.NewChromeRenderer("", 0), mailer, st, opts...)
}
