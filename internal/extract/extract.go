// Package extract turns a fetched vendor page into a Provider using the
// LLM oracle.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/strategy"
)

// DefaultContentBudget is the number of characters of page text sent to
// the model.
const DefaultContentBudget = 4000

// Kind classifies an extraction outcome.
type Kind int

const (
	KindOK Kind = iota
	KindBadJSON
	KindMissingName
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindBadJSON:
		return "bad_json"
	case KindMissingName:
		return "missing_name"
	default:
		return "failed"
	}
}

// Result is the outcome of one extraction. Provider is only meaningful when
// Kind is KindOK.
type Result struct {
	Provider model.Provider
	Kind     Kind
	Err      error
}

// OK reports whether a usable provider was extracted.
func (r Result) OK() bool { return r.Kind == KindOK }

// Role selects the extraction prompt.
type Role int

const (
	RoleVendor Role = iota
	RoleVenue
)

const systemText = "You extract vendor details for Indian event planning from listing pages. Return only valid JSON. Use null for any field the page does not state. Never invent phone numbers or prices."

const vendorPrompt = `Extract the single %s vendor described on this page.

Event context:
- Service: %s
- Event type: %s
- Location: %s
- Budget: %s

Return a JSON object with exactly these keys:
{"name": string, "address": string|null, "contact": string|null, "price": string|null, "rating": string|null, "description": string|null, "website": string|null}

- name is the business name, not the listing site.
- contact is a phone number as printed on the page.
- price keeps the currency and unit (e.g. "₹1,200 per plate").
- description is one sentence on what they offer.
If the page lists many vendors, pick the first one in %s.

Page content:
%s`

const venuePrompt = `Extract the single event venue described on this page.

Event context:
- Event type: %s
- Location: %s
- Guests: %s
- Venue type: %s
- Budget: %s

Return a JSON object with exactly these keys:
{"name": string, "address": string|null, "contact": string|null, "price": string|null, "rating": string|null, "description": string|null, "website": string|null}

- name is the venue name, not the listing site.
- address is the full street address including locality.
- price keeps the currency and unit (e.g. "₹1,100 per plate" or "₹60,000 per day").
- description mentions capacity and venue type when stated.

Page content:
%s`

// Extractor calls the LLM with a vendor prompt and validates the answer.
type Extractor struct {
	llm    llm.Client
	budget int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithContentBudget caps how much page text is sent to the model.
func WithContentBudget(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.budget = n
		}
	}
}

// New creates an Extractor.
func New(client llm.Client, opts ...Option) *Extractor {
	e := &Extractor{llm: client, budget: DefaultContentBudget}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract asks the model for the provider on doc. The returned provider is
// normalised and always carries SourceURL and ServiceType.
func (e *Extractor) Extract(ctx context.Context, role Role, doc model.FetchedDocument, req strategy.Request) Result {
	res := e.extract(ctx, role, doc, req)
	metrics.Extractions.WithLabelValues(res.Kind.String()).Inc()
	if !res.OK() {
		zap.L().Debug("extract: hit skipped",
			zap.String("url", doc.URL),
			zap.String("kind", res.Kind.String()),
			zap.Error(res.Err),
		)
	}
	return res
}

func (e *Extractor) extract(ctx context.Context, role Role, doc model.FetchedDocument, req strategy.Request) Result {
	raw, err := e.llm.ExtractJSON(ctx, llm.Request{
		Phase:  "extract",
		System: systemText,
		Prompt: e.prompt(role, doc, req),
		Shape:  llm.Object,
	})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidJSON) {
			return Result{Kind: KindBadJSON, Err: err}
		}
		return Result{Kind: KindFailed, Err: err}
	}

	p, err := Decode(raw)
	if err != nil {
		return Result{Kind: KindBadJSON, Err: err}
	}
	if p.SourceURL == "" {
		p.SourceURL = doc.URL
	}
	if p.ServiceType == "" {
		p.ServiceType = req.Service
	}
	p.Normalize()
	if p.Name == "" {
		return Result{Kind: KindMissingName}
	}
	return Result{Provider: p, Kind: KindOK}
}

func (e *Extractor) prompt(role Role, doc model.FetchedDocument, req strategy.Request) string {
	content := Truncate(doc.Text, e.budget)
	budget := "not specified"
	if req.Budget > 0 {
		budget = fmt.Sprintf("₹%d", req.Budget)
	}
	if role == RoleVenue {
		guests := "not specified"
		if req.GuestCount > 0 {
			guests = strconv.Itoa(req.GuestCount)
		}
		venueType := req.VenueType
		if venueType == "" {
			venueType = "any"
		}
		return fmt.Sprintf(venuePrompt, req.EventType, req.Location, guests, venueType, budget, content)
	}
	return fmt.Sprintf(vendorPrompt, strings.ToLower(req.Service), req.Service, req.EventType, req.Location, budget, req.Location, content)
}

// Decode reads a provider object. Scalar values of any JSON type are
// accepted and rendered as strings; nested values are ignored.
func Decode(raw json.RawMessage) (model.Provider, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return model.Provider{}, err
	}
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := scalar(m[k]); v != "" {
				return v
			}
		}
		return ""
	}
	return model.Provider{
		Name:        get("name", "vendor_name", "business_name"),
		Address:     get("address", "location"),
		Contact:     get("contact", "phone", "phone_number"),
		Price:       get("price", "price_range", "pricing"),
		Rating:      get("rating"),
		Description: get("description", "about"),
		Website:     get("website", "url"),
		SourceURL:   get("source_url"),
		MapURL:      get("map_url"),
		ServiceType: get("service_type"),
	}, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Truncate cuts s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
