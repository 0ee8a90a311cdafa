// Package discovery runs the vendor discovery pipeline for one service
// request: strategy queries, bounded fetch+extract fan-out with early
// cancel, dedup and ranking, then enrichment.
package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/event-planner/internal/extract"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/strategy"
)

// State is a step of a discovery request.
type State string

const (
	StatePlanning   State = "planning"
	StateSearching  State = "searching"
	StateExtracting State = "extracting"
	StateEnriching  State = "enriching"
	StateDone       State = "done"
	StateEmpty      State = "empty"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool { return s == StateDone || s == StateEmpty }

// Section headers for decoration results.
const (
	OfflineHeader = "Offline Decoration Vendors"
	OnlineHeader  = "Online Decoration Vendors"
)

// EmptyResultError is returned when every query was exhausted without an
// acceptable provider.
type EmptyResultError struct {
	Service  string
	Location string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("Could not find suitable %s vendors in %s", e.Service, e.Location)
}

// Result is the outcome of a discovery request. Exactly one of Providers
// and Err is set.
type Result struct {
	Providers []model.Provider  `json:"providers,omitempty"`
	State     State             `json:"state"`
	Err       *EmptyResultError `json:"-"`
	Cached    bool              `json:"cached,omitempty"`
	// Partial is set when the deadline or the caller cut the run short.
	Partial bool `json:"partial,omitempty"`
}

// ErrorRecord is the list-shaped wire form of an empty result.
type ErrorRecord struct {
	Error string `json:"error"`
}

// Wire returns the UI list shape: the providers, or a single error record.
func (r Result) Wire() any {
	if r.Err != nil {
		return []ErrorRecord{{Error: r.Err.Error()}}
	}
	return r.Providers
}

// Fetcher downloads distilled page text.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (model.FetchedDocument, bool)
	Skipped(rawURL string) bool
}

// Extractor turns a page into a provider.
type Extractor interface {
	Extract(ctx context.Context, role extract.Role, doc model.FetchedDocument, req strategy.Request) extract.Result
}

// Enricher fills missing provider fields.
type Enricher interface {
	Enrich(ctx context.Context, p model.Provider, st strategy.Strategy, req strategy.Request) model.Provider
}

// Cache stores finished discovery results.
type Cache interface {
	GetCachedDiscovery(ctx context.Context, key string) ([]model.Provider, bool, error)
	SetCachedDiscovery(ctx context.Context, key string, providers []model.Provider, ttl time.Duration) error
}

// CacheKey identifies a request for the discovery cache.
func CacheKey(req strategy.Request) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(req.Service)),
		strings.ToLower(strings.TrimSpace(req.EventType)),
		strings.ToLower(strings.TrimSpace(req.Location)),
		fmt.Sprint(req.Budget),
		fmt.Sprint(req.GuestCount),
		strings.ToLower(strings.TrimSpace(req.VenueType)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

// RequestFor fills the blanks of req from a saved event: event type,
// location and guest count from the plan, budget from the matching
// service line.
func RequestFor(req strategy.Request, ev *model.EventPlan) strategy.Request {
	if ev == nil {
		return req
	}
	if req.EventType == "" {
		req.EventType = ev.Category
	}
	if req.Location == "" {
		req.Location = ev.Location
	}
	if req.GuestCount == 0 {
		req.GuestCount = ev.GuestCount
	}
	if req.Budget == 0 {
		if i := model.FindService(ev.Services, req.Service); i >= 0 {
			req.Budget = ev.Services[i].Budget
		}
	}
	return req
}
