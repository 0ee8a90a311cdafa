package scrape

import (
	"context"
)

// Page is the raw body of a fetched URL.
type Page struct {
	URL        string
	Title      string
	Body       string
	StatusCode int
	// HTML is false when Body is already plain text or markdown and needs
	// no distillation.
	HTML bool
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "headless", "jina"
	// Text is the distilled main text, set by Chain.
	Text string
	// Step names the distil stage that produced Text.
	Step string
}

// distil fills Text from the page body and reports whether it reached
// minChars.
func (r *Result) distil(minChars int) bool {
	if r.Page.HTML {
		r.Text, r.Step = Distil(r.Page.Body, r.Page.URL, minChars)
		if r.Page.Title == "" {
			r.Page.Title = Title(r.Page.Body)
		}
	} else {
		r.Text, r.Step = collapse(r.Page.Body), "markdown"
	}
	return r.Text != "" && len(r.Text) >= minChars
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
