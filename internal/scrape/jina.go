package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/event-planner/internal/cost"
	"github.com/sells-group/event-planner/internal/resilience"
	"github.com/sells-group/event-planner/pkg/jina"
)

// JinaAdapter wraps the Jina Reader as the last-resort Scraper. The reader
// renders the page server-side and returns markdown, so results skip
// distillation.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client. Three consecutive
// failures open the breaker for 60s, during which Supports reports false.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewBreaker("jina_reader", 3, 60*time.Second),
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return !j.breaker.Open()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.Call(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		page, err := j.client.Read(ctx, targetURL, jina.WithoutSelectors(boilerplate...))
		if err != nil {
			return nil, err
		}
		cost.Record("jina", "fetch", cost.Default.Jina(page.Tokens))
		if needsFallback(page) {
			return nil, eris.New("jina: response needs fallback")
		}
		return &Result{
			Page: Page{
				URL:        targetURL,
				Title:      page.Title,
				Body:       page.Markdown,
				StatusCode: page.Code,
			},
			Source: "jina",
		}, nil
	})
}

// Page chrome stripped by the reader before conversion.
var boilerplate = []string{"header", "footer", "nav", "aside", "[class*=cookie]", "[class*=newsletter]"}

// needsFallback reports whether a page is empty, an error, or a
// bot-challenge page.
func needsFallback(page *jina.Page) bool {
	if page == nil {
		return true
	}
	if page.Code != 0 && page.Code != 200 {
		return true
	}

	content := strings.TrimSpace(page.Markdown)
	if len(content) < 100 {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
	"verify you are human",
}
