// Package google looks up venues with the Google Places API (New).
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	defaultRegion  = "IN"
	maxErrorBody   = 512
)

// Venue fields requested from Places. Billing depends on this list.
var venueFields = []string{
	"displayName",
	"formattedAddress",
	"nationalPhoneNumber",
	"websiteUri",
	"googleMapsUri",
	"rating",
	"userRatingCount",
}

// Client finds venues by free-text description.
type Client interface {
	FindPlaces(ctx context.Context, q Query) ([]Place, error)
}

// Query is a Places text search. Region defaults to IN and Limit to 3.
type Query struct {
	Text   string
	Region string
	Limit  int
}

// Place is one venue candidate.
type Place struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string  `json:"formattedAddress"`
	NationalPhoneNumber string  `json:"nationalPhoneNumber"`
	WebsiteURI          string  `json:"websiteUri"`
	GoogleMapsURI       string  `json:"googleMapsUri"`
	Rating              float64 `json:"rating"`
	UserRatingCount     int     `json:"userRatingCount"`
}

// Name returns the display name.
func (p Place) Name() string { return p.DisplayName.Text }

// RatingLabel formats the rating as "4.4 (212 reviews)", or "" when unrated.
func (p Place) RatingLabel() string {
	if p.Rating <= 0 {
		return ""
	}
	if p.UserRatingCount <= 0 {
		return fmt.Sprintf("%.1f", p.Rating)
	}
	return fmt.Sprintf("%.1f (%d reviews)", p.Rating, p.UserRatingCount)
}

// BestMatch returns the first place whose name shares every word of the
// shorter of the two names with want. Places ranks loosely, so the top hit
// is not trusted blindly.
func BestMatch(places []Place, want string) (Place, bool) {
	wantWords := words(want)
	if len(wantWords) == 0 {
		return Place{}, false
	}
	for _, p := range places {
		if overlaps(wantWords, words(p.Name())) {
			return p, true
		}
	}
	return Place{}, false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func overlaps(a, b []string) bool {
	if len(b) == 0 {
		return false
	}
	short, long := a, b
	if len(b) < len(a) {
		short, long = b, a
	}
	set := make(map[string]bool, len(long))
	for _, w := range long {
		set[w] = true
	}
	for _, w := range short {
		if !set[w] {
			return false
		}
	}
	return true
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google: places status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*placesClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *placesClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *placesClient) { c.http = hc }
}

type placesClient struct {
	apiKey    string
	baseURL   string
	fieldMask string
	http      *http.Client
}

// NewClient creates a Places client.
func NewClient(apiKey string, opts ...Option) Client {
	masked := make([]string, len(venueFields))
	for i, f := range venueFields {
		masked[i] = "places." + f
	}
	c := &placesClient{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		fieldMask: strings.Join(masked, ","),
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *placesClient) FindPlaces(ctx context.Context, q Query) ([]Place, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, eris.New("google: empty query")
	}
	region, limit := q.Region, q.Limit
	if region == "" {
		region = defaultRegion
	}
	if limit <= 0 {
		limit = 3
	}

	payload, err := json.Marshal(map[string]any{
		"textQuery":      q.Text,
		"maxResultCount": limit,
		"regionCode":     region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "google: encode query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "google: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", c.fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: places request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out struct {
		Places []Place `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "google: decode places")
	}
	return out.Places, nil
}
