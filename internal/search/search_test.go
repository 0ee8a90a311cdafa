package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/ratelimit"
	"github.com/sells-group/event-planner/internal/resilience"
	"github.com/sells-group/event-planner/pkg/jina"
	"github.com/sells-group/event-planner/pkg/serper"
)

type scriptedBackend struct {
	mu     sync.Mutex
	calls  int
	sites  []string
	script []func() ([]model.SearchHit, error)
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Search(_ context.Context, _, site string, _ int) ([]model.SearchHit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sites = append(b.sites, site)
	i := b.calls
	b.calls++
	if i >= len(b.script) {
		i = len(b.script) - 1
	}
	return b.script[i]()
}

func hits(urls ...string) func() ([]model.SearchHit, error) {
	return func() ([]model.SearchHit, error) {
		out := make([]model.SearchHit, len(urls))
		for i, u := range urls {
			out[i] = model.SearchHit{URL: u, Title: u}
		}
		return out, nil
	}
}

func fail(err error) func() ([]model.SearchHit, error) {
	return func() ([]model.SearchHit, error) { return nil, err }
}

func newTestClient(b Backend, delays *[]time.Duration, opts ...Option) *Client {
	pacer := ratelimit.New(ratelimit.WithClass(ratelimit.Search, 0, 0))
	policy := resilience.DefaultPolicy()
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return New(b, pacer, policy, opts...)
}

func TestSiteOf(t *testing.T) {
	assert.Equal(t, "venuelook.com", SiteOf("banquet halls Kolkata site:venuelook.com"))
	assert.Equal(t, "weddingwire.in", SiteOf("site:www.WeddingWire.in caterers"))
	assert.Equal(t, "", SiteOf("caterers in Mumbai"))
	assert.Equal(t, "", SiteOf("website:foo.com"))
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("https://www.venuelook.com/kolkata/x", "venuelook.com"))
	assert.True(t, HostMatches("https://venuelook.com/x", "www.venuelook.com"))
	assert.True(t, HostMatches("https://m.venuelook.com/x", "venuelook.com"))
	assert.False(t, HostMatches("https://notvenuelook.com/x", "venuelook.com"))
	assert.False(t, HostMatches("https://venuelook.com.evil.io/x", "venuelook.com"))
	assert.False(t, HostMatches("not a url", "venuelook.com"))
}

func TestSearch_SiteFilterDropsOtherHosts(t *testing.T) {
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		hits(
			"https://www.venuelook.com/kolkata/royal",
			"https://www.justdial.com/kolkata/royal",
			"https://venuelook.com/kolkata/grand",
			"https://www.facebook.com/venuelook.com",
		),
	}}
	var delays []time.Duration
	c := newTestClient(b, &delays)

	got := c.Search(context.Background(), "banquet hall Kolkata site:venuelook.com", 10)
	require.Len(t, got, 2)
	for _, h := range got {
		assert.True(t, HostMatches(h.URL, "venuelook.com"), h.URL)
	}
	assert.Equal(t, []string{"venuelook.com"}, b.sites)
}

func TestSearch_SiteFilterLeavesBackendSliceIntact(t *testing.T) {
	shared := []model.SearchHit{
		{URL: "https://www.justdial.com/pune/shree"},
		{URL: "https://www.weddingwire.in/pune/lotus"},
		{URL: "https://www.justdial.com/pune/kesar"},
	}
	want := append([]model.SearchHit(nil), shared...)
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		func() ([]model.SearchHit, error) { return shared, nil },
	}}
	var delays []time.Duration
	c := newTestClient(b, &delays)

	got := c.Search(context.Background(), "caterers Pune site:weddingwire.in", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.weddingwire.in/pune/lotus", got[0].URL)
	assert.Equal(t, want, shared)
}

func TestSearch_PreservesOrderAndTruncates(t *testing.T) {
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		hits("https://a.com", "https://b.com", "https://c.com"),
	}}
	var delays []time.Duration
	got := newTestClient(b, &delays).Search(context.Background(), "caterers", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, "https://b.com", got[1].URL)
}

func TestSearch_RateLimitBacksOffExponentially(t *testing.T) {
	limited := resilience.NewTransientError(errors.New("slow down"), 429)
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		fail(limited), fail(limited), hits("https://a.com"),
	}}
	var delays []time.Duration
	got := newTestClient(b, &delays).Search(context.Background(), "caterers", 10)

	require.Len(t, got, 1)
	assert.Equal(t, 3, b.calls)
	require.Len(t, delays, 2)
	assert.GreaterOrEqual(t, delays[0], time.Second)
	assert.GreaterOrEqual(t, delays[1], 2*time.Second)
}

func TestSearch_OtherErrorsGetOneShortRetry(t *testing.T) {
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		fail(errors.New("connection refused")),
	}}
	var delays []time.Duration
	got := newTestClient(b, &delays, WithShortRetry(10*time.Millisecond)).Search(context.Background(), "caterers", 10)

	assert.Empty(t, got)
	assert.Equal(t, 2, b.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, delays)
}

func TestSearch_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	b := &scriptedBackend{script: []func() ([]model.SearchHit, error){
		fail(errors.New("backend down")),
	}}
	var delays []time.Duration
	c := newTestClient(b, &delays, WithBreaker(resilience.NewBreaker("test", 2, time.Minute)))

	assert.Empty(t, c.Search(context.Background(), "q1", 10))
	assert.Equal(t, 2, b.calls)

	// Breaker is open: no backend call at all.
	assert.Empty(t, c.Search(context.Background(), "q2", 10))
	assert.Equal(t, 2, b.calls)
}

func TestJinaBackend_MapsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("site") == "weddingwire.in" {
			w.Write([]byte(`{"code":200,"data":[{"title":"Spice Route","url":"https://www.weddingwire.in/spice","description":"Caterer"}]}`)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := NewJinaBackend(jina.NewClient("k", jina.WithSearchBaseURL(srv.URL)))

	got, err := b.Search(context.Background(), "caterers site:weddingwire.in", "weddingwire.in", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Caterer", got[0].Snippet)

	_, err = b.Search(context.Background(), "caterers", "", 5)
	assert.True(t, resilience.IsRateLimit(err))
}

func TestSerperBackend_MapsOrganic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[{"title":"Lens Story","link":"https://www.wedmegood.com/lens","snippet":"Candid"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	b := NewSerperBackend(serper.NewClient("k", serper.WithBaseURL(srv.URL)))
	got, err := b.Search(context.Background(), "photographers", "", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SearchHit{URL: "https://www.wedmegood.com/lens", Title: "Lens Story", Snippet: "Candid"}, got[0])
	assert.Equal(t, "serper", b.Name())
}
