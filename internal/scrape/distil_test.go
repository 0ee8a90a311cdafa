package scrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const articlePage = `<html><head><title>Shutterbug Studios | Wedding Photographers in Jaipur</title></head>
<body>
<nav><a href="/">Home</a><a href="/vendors">Vendors</a></nav>
<article>
<h1>Shutterbug Studios</h1>
<p>Shutterbug Studios is a candid wedding photography team based in Malviya Nagar, Jaipur.
They cover pre-wedding shoots, haldi, mehendi and reception events across Rajasthan.</p>
<p>Packages start at Rs. 65,000 per day for two photographers and one cinematographer.
Albums and a highlight film are delivered within six weeks of the event.</p>
<p>Call +91 98290 12345 or visit shutterbugstudios.in to check availability.</p>
</article>
<footer>Copyright 2024 Vendor Directory</footer>
</body></html>`

func TestDistil_Readability(t *testing.T) {
	text, step := Distil(articlePage, "https://www.wedmegood.com/shutterbug", 200)
	assert.Contains(t, []string{"readability", "selector"}, step)
	assert.Contains(t, text, "Malviya Nagar")
	assert.Contains(t, text, "98290 12345")
	assert.NotContains(t, text, "<p>")
}

func TestDistil_ParagraphFallback(t *testing.T) {
	// Table-only listings give readability and the selectors nothing.
	var rows strings.Builder
	for i := 0; i < 8; i++ {
		rows.WriteString("<tr><td>Hall capacity 250 guests, AC banquet, valet parking</td></tr>")
	}
	page := "<html><body><div><table>" + rows.String() + "</table></div></body></html>"

	text, step := Distil(page, "https://venue.example", 200)
	if step != "readability" {
		assert.Equal(t, "paragraphs", step)
	}
	assert.Contains(t, text, "valet parking")
}

func TestDistil_TooThin(t *testing.T) {
	text, step := Distil("<html><body><p>Coming soon</p></body></html>", "https://x.example", 200)
	assert.Empty(t, text)
	assert.Empty(t, step)
}

func TestDistil_DropsScripts(t *testing.T) {
	page := `<html><body><script>var tracking = "ignore me";</script><main><p>` +
		strings.Repeat("Melody Makers DJ and live band for sangeet nights. ", 6) +
		`</p></main></body></html>`

	text, _ := Distil(page, "https://melody.example", 200)
	assert.Contains(t, text, "Melody Makers")
	assert.NotContains(t, text, "tracking")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Shutterbug Studios | Wedding Photographers in Jaipur", Title(articlePage))
	assert.Equal(t, "", Title("<html><body>no title</body></html>"))
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b\nc", collapse("  a \t  b\n\n\n  c  "))
}
