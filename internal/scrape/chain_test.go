package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-planner/internal/metrics"
)

type stubScraper struct {
	name     string
	result   *Result
	err      error
	supports bool
	calls    int
}

func (s *stubScraper) Name() string           { return s.name }
func (s *stubScraper) Supports(_ string) bool { return s.supports }
func (s *stubScraper) Scrape(_ context.Context, _ string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func markdownResult(source, body string) *Result {
	return &Result{Page: Page{URL: "https://vendor.example", Body: body}, Source: source}
}

var richText = strings.Repeat("Dream Decor offers floral mandaps and stage lighting in Pune. ", 5)

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubScraper{name: "first", supports: true, result: markdownResult("first", richText)}
	second := &stubScraper{name: "second", supports: true, result: markdownResult("second", richText)}

	res, err := NewChain(nil, first, second).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Source)
	assert.Equal(t, "markdown", res.Step)
	assert.Equal(t, 0, second.calls)
}

func TestChain_ErrorFallsThrough(t *testing.T) {
	first := &stubScraper{name: "first", supports: true, err: errors.New("timeout")}
	second := &stubScraper{name: "second", supports: true, result: markdownResult("second", richText)}

	res, err := NewChain(nil, first, second).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "second", res.Source)
}

func TestChain_ThinPageFallsThrough(t *testing.T) {
	first := &stubScraper{name: "first", supports: true, result: markdownResult("first", "Loading...")}
	second := &stubScraper{name: "second", supports: true, result: markdownResult("second", richText)}

	res, err := NewChain(nil, first, second).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "second", res.Source)
	assert.Equal(t, 1, first.calls)
}

func TestChain_AllThin(t *testing.T) {
	only := &stubScraper{name: "only", supports: true, result: markdownResult("only", "tiny")}

	_, err := NewChain(nil, only).Scrape(context.Background(), "https://vendor.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_WithMinChars(t *testing.T) {
	only := &stubScraper{name: "only", supports: true, result: markdownResult("only", "short but enough")}

	res, err := NewChain(nil, only).WithMinChars(10).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "short but enough", res.Text)
}

func TestChain_SkipsUnsupported(t *testing.T) {
	off := &stubScraper{name: "off", supports: false, result: markdownResult("off", richText)}
	on := &stubScraper{name: "on", supports: true, result: markdownResult("on", richText)}

	res, err := NewChain(nil, off, on).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "on", res.Source)
	assert.Equal(t, 0, off.calls)
}

func TestChain_NoSupportingScraper(t *testing.T) {
	off := &stubScraper{name: "off", supports: false}

	_, err := NewChain(nil, off).Scrape(context.Background(), "https://vendor.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
}

func TestChain_SkipListRejects(t *testing.T) {
	s := &stubScraper{name: "s", supports: true, result: markdownResult("s", richText)}

	_, err := NewChain(nil, s).Scrape(context.Background(), "https://www.instagram.com/dreamdecor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skip list")
	assert.Equal(t, 0, s.calls)
}

func TestChain_DistilsHTML(t *testing.T) {
	html := "<html><head><title>Dream Decor</title></head><body><main><p>" + richText + "</p></main></body></html>"
	s := &stubScraper{name: "local_http", supports: true, result: &Result{
		Page:   Page{URL: "https://dreamdecor.example", Body: html, HTML: true},
		Source: "local_http",
	}}

	res, err := NewChain(nil, s).Scrape(context.Background(), "https://dreamdecor.example")
	require.NoError(t, err)
	assert.Equal(t, "Dream Decor", res.Page.Title)
	assert.Contains(t, res.Text, "floral mandaps")
	assert.NotContains(t, res.Text, "<p>")
}

func TestChain_BlockedFallsThroughAndCounts(t *testing.T) {
	before := testutil.ToFloat64(metrics.Fetches.WithLabelValues("local_http", metrics.Blocked))
	local := &stubScraper{name: "local_http", supports: true, err: &BlockedError{Type: BlockCloudflare, Status: 403}}
	reader := &stubScraper{name: "jina", supports: true, result: markdownResult("jina", richText)}

	res, err := NewChain(nil, local, reader).Scrape(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "jina", res.Source)
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.Fetches.WithLabelValues("local_http", metrics.Blocked)), 0.001)
}
