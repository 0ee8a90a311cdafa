// Package strategy decides, per service family, which listing sites to
// search and in what order.
package strategy

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/event-planner/internal/model"
)

// Kind is a closed set of service families.
type Kind int

const (
	Generic Kind = iota
	Catering
	Decoration
	Photography
	Cake
	Entertainment
	Venue
)

// Kinds lists every Kind.
var Kinds = []Kind{Generic, Catering, Decoration, Photography, Cake, Entertainment, Venue}

// DefaultLimit is the provider quota for kinds that do not set one.
const DefaultLimit = 5

func (k Kind) String() string {
	switch k {
	case Catering:
		return "catering"
	case Decoration:
		return "decoration"
	case Photography:
		return "photography"
	case Cake:
		return "cake"
	case Entertainment:
		return "entertainment"
	case Venue:
		return "venue"
	default:
		return "generic"
	}
}

// Request is the event context a strategy builds queries for.
type Request struct {
	Service    string `json:"service"`
	EventType  string `json:"event_type"`
	Location   string `json:"location"`
	Budget     int    `json:"budget"`
	GuestCount int    `json:"guest_count,omitempty"`
	VenueType  string `json:"venue_type,omitempty"`
}

// Strategy is the resolved plan for one service family.
type Strategy struct {
	Kind    Kind
	profile Profile
	online  []OnlineRetailer
}

// keywords are checked in order; the first family with a matching keyword
// wins.
var keywords = []struct {
	kind  Kind
	words []string
}{
	{Catering, []string{"cater", "food"}},
	{Decoration, []string{"decor"}},
	{Photography, []string{"photo", "video", "camera"}},
	{Cake, []string{"cake", "bak", "dessert"}},
	{Entertainment, []string{"entertain", "dj", "music", "band", "dance", "anchor", "emcee", "magician"}},
	{Venue, []string{"venue", "hall", "banquet", "lawn", "resort"}},
}

// KindOf maps a free-text service name to its family. Unknown services are
// Generic.
func KindOf(service string) Kind {
	s := cases.Fold().String(service)
	for _, kw := range keywords {
		for _, w := range kw.words {
			if strings.Contains(s, w) {
				return kw.kind
			}
		}
	}
	return Generic
}

// Choose returns the strategy for a service name.
func Choose(service string) Strategy {
	return ForKind(KindOf(service))
}

// ForKind returns the built-in strategy for k.
func ForKind(k Kind) Strategy {
	return builtin.For(k)
}

// For returns the strategy for k from this catalog.
func (c *Catalog) For(k Kind) Strategy {
	s := Strategy{Kind: k, profile: c.Strategies[k.String()]}
	if k == Decoration {
		s.online = c.OnlineDecorators
	}
	return s
}

// PreferredSites returns the listing hosts in preference order.
func (s Strategy) PreferredSites() []string {
	return append([]string(nil), s.profile.Sites...)
}

// Limit is the maximum number of providers to return.
func (s Strategy) Limit() int {
	if s.profile.Limit <= 0 {
		return DefaultLimit
	}
	return s.profile.Limit
}

// PriceFallback is the estimate bucket used when no price can be found.
func (s Strategy) PriceFallback() string {
	return s.profile.PriceFallback
}

// OnlineRetailers returns the known online services appended after the
// offline results. Only decoration has any.
func (s Strategy) OnlineRetailers() []OnlineRetailer {
	return append([]OnlineRetailer(nil), s.online...)
}

// SingleSite reports whether hits must be restricted to the primary site.
func (s Strategy) SingleSite() bool {
	return s.Kind == Venue
}

// Queries returns the ordered search queries for req: every term on the
// primary site, the primary term on each secondary site, then open-web
// fallbacks. Venue only ever searches its primary site.
func (s Strategy) Queries(req Request) []model.SearchQuery {
	sites := s.profile.Sites
	terms := s.profile.Terms
	subject := s.subject(req)

	var out []model.SearchQuery
	add := func(text, site string) {
		out = append(out, model.SearchQuery{Text: strings.Join(strings.Fields(text), " "), PreferredSite: site})
	}

	primary := sites[0]
	for i, term := range terms {
		if i == 0 {
			term = subject
		}
		add(fmt.Sprintf("%s for %s in %s site:%s", term, eventLabel(req), req.Location, primary), primary)
	}

	switch s.Kind {
	case Venue:
		if req.GuestCount > 0 {
			add(fmt.Sprintf("%s in %s for %d guests site:%s", subject, req.Location, req.GuestCount, primary), primary)
		}
		return out
	case Generic:
		for _, site := range sites[1:] {
			add(fmt.Sprintf("%s in %s site:%s", subject, req.Location, site), site)
		}
	default:
		for _, site := range sites[1:] {
			add(fmt.Sprintf("%s in %s for %s site:%s", subject, req.Location, eventLabel(req), site), site)
		}
	}

	add(fmt.Sprintf("best %s in %s for %s", subject, req.Location, eventLabel(req)), "")
	if req.Budget > 0 {
		add(fmt.Sprintf("%s %s %s budget %d contact number price", req.Service, req.Location, eventLabel(req), req.Budget), "")
	}
	return out
}

// FallbackQuery is the broader single-site query used when the first
// venue pass found too few providers.
func (s Strategy) FallbackQuery(req Request) model.SearchQuery {
	primary := s.profile.Sites[0]
	return model.SearchQuery{
		Text:          fmt.Sprintf("venues in %s site:%s", req.Location, primary),
		PreferredSite: primary,
	}
}

// OnlineQuery searches for the online decoration services in req.Location.
func (s Strategy) OnlineQuery(req Request) model.SearchQuery {
	return model.SearchQuery{Text: fmt.Sprintf("online %s decoration services in %s", eventLabel(req), req.Location)}
}

// subject is what is being searched for: the venue type for venues, the
// first catalog term for known families and the service name itself for
// generic requests.
func (s Strategy) subject(req Request) string {
	switch s.Kind {
	case Venue:
		if req.VenueType != "" {
			return req.VenueType
		}
	case Generic:
		if req.Service != "" {
			return req.Service
		}
	}
	return s.profile.Terms[0]
}

func eventLabel(req Request) string {
	if req.EventType == "" {
		return "event"
	}
	return strings.ToLower(req.EventType)
}
