package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// HeadlessScraper renders a page in headless Chrome. Listing sites that
// build their vendor cards client-side come back empty from a plain GET.
// It needs a Chrome binary on PATH and is off unless fetch.headless is set.
type HeadlessScraper struct {
	userAgent string
	timeout   time.Duration
	// waitFor is the selector awaited before the DOM is captured.
	waitFor string
}

// NewHeadlessScraper creates a headless scraper.
func NewHeadlessScraper(userAgent string, timeout time.Duration) *HeadlessScraper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HeadlessScraper{userAgent: userAgent, timeout: timeout, waitFor: "body"}
}

func (h *HeadlessScraper) Name() string           { return "headless" }
func (h *HeadlessScraper) Supports(_ string) bool { return true }

// Scrape navigates to targetURL and captures the rendered document.
func (h *HeadlessScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(h.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html, title string
	err := chromedp.Run(bctx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(h.waitFor, chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrap(err, "headless: render")
	}
	if len(html) < 100 {
		return nil, eris.New("headless: empty page")
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			Title:      title,
			Body:       html,
			StatusCode: 200,
			HTML:       true,
		},
		Source: "headless",
	}, nil
}
