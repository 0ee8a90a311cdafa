package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// contentSelectors are tried in order when readability yields too little
// text. Vendor-listing containers first, then generic main-content areas.
var contentSelectors = []string{
	// venuelook / weddingwire / wedmegood / justdial / sulekha vendor pages
	".vendor-details", ".vendor-info", ".vendorDetail", ".profile-details",
	".storefront-info", ".app-storefront-header", ".venue-details", ".venue-info",
	".listing-details", ".store-details", ".company-details", ".business-info",
	"#vendor-profile", "#storefront", "[itemtype*='LocalBusiness']",
	// generic
	"main", "article", "[role='main']", ".content", "#content", ".main-content",
}

var (
	wsRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	nlRe = regexp.MustCompile(`\n\s*\n+`)
)

// Distil extracts the main text of an HTML page. It returns the first
// stage whose output reaches minChars: readability, then the content
// selectors, then all visible paragraphs. The returned step names the
// stage used; text is "" when no stage reaches minChars.
func Distil(html, pageURL string, minChars int) (text, step string) {
	u, _ := url.Parse(pageURL)
	if u == nil {
		u = &url.URL{}
	}

	if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
		if t := collapse(article.TextContent); len(t) >= minChars {
			return t, "readability"
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	doc.Find("script, style, noscript, nav, footer, header, iframe, svg").Remove()

	for _, sel := range contentSelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if t := collapse(strings.Join(parts, "\n")); len(t) >= minChars {
			return t, "selector"
		}
	}

	var paras []string
	doc.Find("p, li, h1, h2, h3, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); len(t) > 1 {
			paras = append(paras, t)
		}
	})
	if t := collapse(strings.Join(paras, "\n")); len(t) >= minChars {
		return t, "paragraphs"
	}
	return "", ""
}

// Title returns the <title> of an HTML page.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func collapse(s string) string {
	s = wsRe.ReplaceAllString(s, " ")
	s = nlRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
