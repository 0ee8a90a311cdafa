// Package jina provides a client for the Jina reader (r.jina.ai) and search
// (s.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Jina operations used by the planner.
type Client interface {
	// Read renders a page server-side and returns it as markdown.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*Page, error)
	// Search runs a web search and returns results in rank order.
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Page is a rendered page. Code is the reader's own status for the target,
// which can differ from the HTTP status of the reader call.
type Page struct {
	Code     int
	Title    string
	URL      string
	Markdown string
	Tokens   int
}

// Query is a search request. Site restricts results to one domain; Country
// (ISO 3166 alpha-2) and Location bias ranking.
type Query struct {
	Text     string
	Site     string
	Num      int
	Country  string
	Location string
}

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// StatusError is returned for non-2xx responses so callers can decide
// whether the status is worth retrying.
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server's Retry-After hint in whole seconds, or 0.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ReadOption adjusts a single Read.
type ReadOption func(http.Header)

// WithoutSelectors strips matching elements before conversion.
func WithoutSelectors(css ...string) ReadOption {
	return func(h http.Header) {
		if len(css) > 0 {
			h.Set("X-Remove-Selector", strings.Join(css, ", "))
		}
	}
}

// WithTargetSelector converts only the matching element.
func WithTargetSelector(css string) ReadOption {
	return func(h http.Header) {
		if css != "" {
			h.Set("X-Target-Selector", css)
		}
	}
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets the reader base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.readerURL = strings.TrimRight(u, "/")
		}
	}
}

// WithSearchBaseURL sets the search base URL.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey    string
	readerURL string
	searchURL string
	http      *http.Client
}

// NewClient creates a Jina client. It does not retry; the caller's retry
// policy decides what to do with a *StatusError.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: "https://r.jina.ai",
		searchURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs the request and decodes a 200 body into out. Other statuses
// become *StatusError, except those listed in empty which leave out untouched.
func (c *httpClient) get(req *http.Request, out any, empty ...int) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "jina: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	for _, code := range empty {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		se := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return se
	}
	return eris.Wrap(json.NewDecoder(resp.Body).Decode(out), "jina: decode response")
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.readerURL+"/"+targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: build read request")
	}
	req.Header.Set("X-Return-Format", "markdown")
	for _, o := range opts {
		o(req.Header)
	}

	var env struct {
		Code int `json:"code"`
		Data struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
			Usage   struct {
				Tokens int `json:"tokens"`
			} `json:"usage"`
		} `json:"data"`
	}
	if err := c.get(req, &env); err != nil {
		return nil, err
	}
	return &Page{
		Code:     env.Code,
		Title:    env.Data.Title,
		URL:      env.Data.URL,
		Markdown: env.Data.Content,
		Tokens:   env.Data.Usage.Tokens,
	}, nil
}

func (c *httpClient) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{"q": {q.Text}}
	if q.Site != "" {
		params.Set("site", q.Site)
	}
	if q.Num > 0 {
		params.Set("num", strconv.Itoa(q.Num))
	}
	if q.Country != "" {
		params.Set("gl", strings.ToLower(q.Country))
	}
	if q.Location != "" {
		params.Set("location", q.Location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: build search request")
	}
	req.Header.Set("X-Respond-With", "no-content")

	var env struct {
		Data []Result `json:"data"`
	}
	// 422 means no results for the query.
	if err := c.get(req, &env, http.StatusUnprocessableEntity); err != nil {
		return nil, err
	}
	if q.Num > 0 && len(env.Data) > q.Num {
		env.Data = env.Data[:q.Num]
	}
	return env.Data, nil
}
