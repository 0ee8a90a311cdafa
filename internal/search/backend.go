package search

import (
	"context"
	"errors"

	"github.com/sells-group/event-planner/internal/cost"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/resilience"
	"github.com/sells-group/event-planner/pkg/jina"
	"github.com/sells-group/event-planner/pkg/serper"
)

// Backend is a web-search API. Implementations return hits in relevance
// order and report retryable failures as *resilience.TransientError.
type Backend interface {
	Name() string
	Search(ctx context.Context, query, site string, n int) ([]model.SearchHit, error)
}

// JinaBackend searches via s.jina.ai.
type JinaBackend struct {
	client jina.Client
}

// NewJinaBackend wraps a Jina client.
func NewJinaBackend(c jina.Client) *JinaBackend {
	return &JinaBackend{client: c}
}

// Name implements Backend.
func (b *JinaBackend) Name() string { return "jina" }

// Search implements Backend. Results are localised to India.
func (b *JinaBackend) Search(ctx context.Context, query, site string, n int) ([]model.SearchHit, error) {
	results, err := b.client.Search(ctx, jina.Query{Text: query, Site: site, Num: n, Country: "IN"})
	if err != nil {
		var se *jina.StatusError
		if errors.As(err, &se) {
			return nil, resilience.Classify(err, se.StatusCode, se.RetryAfter)
		}
		return nil, err
	}

	hits := make([]model.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, model.SearchHit{URL: r.URL, Title: r.Title, Snippet: r.Description})
	}
	return hits, nil
}

// SerperBackend searches Google via serper.dev.
type SerperBackend struct {
	client  serper.Client
	country string
}

// NewSerperBackend wraps a Serper client. Results are localised to India.
func NewSerperBackend(c serper.Client) *SerperBackend {
	return &SerperBackend{client: c, country: "in"}
}

// Name implements Backend.
func (b *SerperBackend) Name() string { return "serper" }

// Search implements Backend. Google honours site: natively so the site
// argument is not sent separately.
func (b *SerperBackend) Search(ctx context.Context, query, _ string, n int) ([]model.SearchHit, error) {
	resp, err := b.client.Search(ctx, serper.SearchRequest{Query: query, Num: n, Country: b.country})
	if err != nil {
		var se *serper.StatusError
		if errors.As(err, &se) {
			return nil, resilience.Classify(err, se.StatusCode, 0)
		}
		return nil, err
	}
	cost.Record("serper", "search", cost.Default.SerperQuery())

	hits := make([]model.SearchHit, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		hits = append(hits, model.SearchHit{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	return hits, nil
}
