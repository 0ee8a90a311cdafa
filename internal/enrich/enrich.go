// Package enrich fills missing provider fields with targeted follow-up
// searches. Every step is best effort: a failure leaves the field empty.
package enrich

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/extract"
	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/search"
	"github.com/sells-group/event-planner/internal/strategy"
	"github.com/sells-group/event-planner/pkg/google"
)

// NotAvailable is the model's answer when it cannot find a value.
const NotAvailable = "Not available"

// snippetHits is how many search results feed each lookup.
const snippetHits = 5

// DocumentFetcher fetches distilled page text.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (model.FetchedDocument, bool)
}

// Enricher runs contact, price, map and rating lookups for providers.
type Enricher struct {
	search search.Searcher
	fetch  DocumentFetcher
	llm    llm.Client
	places google.Client
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithPlaces enables venue rating lookups through Google Places.
func WithPlaces(c google.Client) Option {
	return func(e *Enricher) { e.places = c }
}

// New creates an Enricher. fetch may be nil, in which case the website
// contact fallback is skipped.
func New(s search.Searcher, fetch DocumentFetcher, client llm.Client, opts ...Option) *Enricher {
	e := &Enricher{search: s, fetch: fetch, llm: client}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich returns p with empty fields filled where a lookup succeeds.
func (e *Enricher) Enrich(ctx context.Context, p model.Provider, st strategy.Strategy, req strategy.Request) model.Provider {
	if p.IsHeader || p.Name == "" {
		return p
	}
	if st.Kind == strategy.Venue {
		if p.MapURL == "" {
			p.MapURL = MapURL(p.Name, p.Address, req.Location)
		}
		if e.places != nil && (p.Rating == "" || p.Contact == "") {
			e.placeDetails(ctx, &p, req)
		}
	}
	if p.Contact == "" {
		p.Contact = e.Contact(ctx, p, req)
	}
	if p.Price == "" {
		p.Price = e.Price(ctx, p, st, req)
	}
	return p
}

// Contact looks for a phone number in search snippets, then on the
// provider's website, then asks the model. Returns "" when nothing valid
// is found.
func (e *Enricher) Contact(ctx context.Context, p model.Provider, req strategy.Request) string {
	log := zap.L().With(zap.String("provider", p.Name), zap.String("phase", "contact"))

	hits := e.search.Search(ctx, fmt.Sprintf("%s %s phone contact", p.Name, req.Location), snippetHits)
	snippets := joinSnippets(hits)
	if c := FindPhone(snippets); c != "" {
		log.Debug("enrich: contact from snippets")
		return c
	}

	if p.Website != "" && e.fetch != nil {
		if doc, ok := e.fetch.Fetch(ctx, p.Website); ok {
			if c := FindPhone(doc.Text); c != "" {
				log.Debug("enrich: contact from website")
				return c
			}
		}
	}

	if snippets == "" || e.llm == nil {
		return ""
	}
	answer, err := e.llm.Classify(ctx, llm.Request{
		Phase:     "enrich_contact",
		Prompt:    fmt.Sprintf(contactPrompt, p.Name, req.Location, extract.Truncate(snippets, 3000), NotAvailable),
		MaxTokens: 50,
	})
	if err != nil {
		log.Debug("enrich: contact lookup failed", zap.Error(err))
		return ""
	}
	return model.NormalizeContact(answer)
}

// Price asks the model to read a price from search snippets and falls back
// to the strategy's estimate bucket.
func (e *Enricher) Price(ctx context.Context, p model.Provider, st strategy.Strategy, req strategy.Request) string {
	fallback := st.PriceFallback()
	hits := e.search.Search(ctx, fmt.Sprintf("%s %s %s price cost package", p.Name, req.Service, req.Location), snippetHits)
	snippets := joinSnippets(hits)
	if snippets == "" || e.llm == nil {
		return fallback
	}
	answer, err := e.llm.Classify(ctx, llm.Request{
		Phase:     "enrich_price",
		Prompt:    fmt.Sprintf(pricePrompt, p.Name, req.Service, req.Location, extract.Truncate(snippets, 3000), fallback),
		MaxTokens: 60,
	})
	if err != nil {
		zap.L().Debug("enrich: price lookup failed", zap.String("provider", p.Name), zap.Error(err))
		return fallback
	}
	answer = strings.Trim(strings.TrimSpace(answer), `"`)
	if answer == "" || strings.EqualFold(answer, NotAvailable) {
		return fallback
	}
	return answer
}

func (e *Enricher) placeDetails(ctx context.Context, p *model.Provider, req strategy.Request) {
	q := strings.TrimSpace(p.Name + " " + p.Address)
	if p.Address == "" {
		q += ", " + req.Location
	}
	places, err := e.places.FindPlaces(ctx, google.Query{Text: q})
	if err != nil {
		zap.L().Debug("enrich: places lookup failed", zap.String("provider", p.Name), zap.Error(err))
		return
	}
	place, ok := google.BestMatch(places, p.Name)
	if !ok {
		return
	}
	if p.Rating == "" {
		p.Rating = place.RatingLabel()
	}
	if p.Contact == "" {
		p.Contact = model.NormalizeContact(place.NationalPhoneNumber)
	}
	if p.Address == "" {
		p.Address = place.FormattedAddress
	}
	if p.Website == "" {
		p.Website = place.WebsiteURI
	}
}

// MapURL builds a Google Maps search link for a venue. The link is never
// fetched.
func MapURL(name, address, location string) string {
	q := strings.TrimSpace(name)
	if address != "" {
		q += ", " + strings.TrimSpace(address)
	} else if location != "" {
		q += ", " + strings.TrimSpace(location)
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}

func joinSnippets(hits []model.SearchHit) string {
	var b strings.Builder
	for _, h := range hits {
		if h.Snippet == "" && h.Title == "" {
			continue
		}
		b.WriteString(h.Title)
		b.WriteString(": ")
		b.WriteString(h.Snippet)
		b.WriteString("\n")
	}
	return b.String()
}

const contactPrompt = `Find the phone number for %s in %s from these search results:

%s

Reply with only the phone number. If no number for this business appears, reply exactly "%s".`

const pricePrompt = `What does %s charge for %s in %s? Use these search results:

%s

Reply with only the price and its unit, e.g. "₹1,200 per plate". If no price appears, reply with this estimate: %s`
