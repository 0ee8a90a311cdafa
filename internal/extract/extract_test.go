package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/llm/llmtest"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/strategy"
)

var (
	cateringReq = strategy.Request{Service: "Catering", EventType: "wedding", Location: "Mumbai", Budget: 300000}
	cateringDoc = model.FetchedDocument{
		URL:  "https://www.weddingwire.in/wedding-catering/spice-route",
		Text: "Source URL: https://www.weddingwire.in/wedding-catering/spice-route\n\nSpice Route Caterers ...",
	}
)

func TestExtract_OK(t *testing.T) {
	stub := llmtest.JSON(`{"name": "Spice Route Caterers", "address": "Andheri West, Mumbai", "contact": "Call +91 98200-12345", "price": "₹1,200 per plate", "rating": 4.6, "description": null, "website": "null"}`)

	res := New(stub).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	require.True(t, res.OK())
	p := res.Provider
	assert.Equal(t, "Spice Route Caterers", p.Name)
	assert.Equal(t, "+91 98200-12345", p.Contact)
	assert.Equal(t, "4.6", p.Rating)
	assert.Empty(t, p.Description)
	assert.Empty(t, p.Website)
	assert.Equal(t, cateringDoc.URL, p.SourceURL)
	assert.Equal(t, "Catering", p.ServiceType)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "extract", calls[0].Phase)
	assert.Equal(t, llm.Object, calls[0].Shape)
	assert.Contains(t, calls[0].Prompt, "Service: Catering")
	assert.Contains(t, calls[0].Prompt, "Location: Mumbai")
	assert.Contains(t, calls[0].Prompt, "₹300000")
}

func TestExtract_KeepsModelSourceURL(t *testing.T) {
	stub := llmtest.JSON(`{"name": "Shutterbug", "source_url": "https://shutterbug.example", "service_type": "Photography"}`)

	res := New(stub).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	require.True(t, res.OK())
	assert.Equal(t, "https://shutterbug.example", res.Provider.SourceURL)
	assert.Equal(t, "Photography", res.Provider.ServiceType)
}

func TestExtract_MissingName(t *testing.T) {
	res := New(llmtest.JSON(`{"name": null, "address": "Bandra"}`)).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	assert.Equal(t, KindMissingName, res.Kind)
	assert.False(t, res.OK())

	res = New(llmtest.JSON(`{"name": "  N/A "}`)).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	assert.Equal(t, KindMissingName, res.Kind)
}

func TestExtract_BadJSON(t *testing.T) {
	res := New(llmtest.JSON(`Sorry, I could not find a vendor.`)).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	assert.Equal(t, KindBadJSON, res.Kind)
	assert.ErrorIs(t, res.Err, llm.ErrInvalidJSON)
}

func TestExtract_LLMFailure(t *testing.T) {
	stub := &llmtest.Stub{OnJSON: func(llm.Request) (string, error) {
		return "", errors.New("rate limited after 3 attempts")
	}}
	res := New(stub).Extract(context.Background(), RoleVendor, cateringDoc, cateringReq)
	assert.Equal(t, KindFailed, res.Kind)
	assert.Error(t, res.Err)
}

func TestExtract_VenuePrompt(t *testing.T) {
	stub := llmtest.JSON(`{"name": "The Grand Banquet"}`)
	req := strategy.Request{Service: "Venue", EventType: "birthday", Location: "Kolkata", GuestCount: 30, Budget: 12000, VenueType: "banquet hall"}

	res := New(stub).Extract(context.Background(), RoleVenue, cateringDoc, req)
	require.True(t, res.OK())

	prompt := stub.Calls()[0].Prompt
	assert.Contains(t, prompt, "Guests: 30")
	assert.Contains(t, prompt, "Venue type: banquet hall")
	assert.Contains(t, prompt, "capacity")
}

func TestExtract_ContentBudget(t *testing.T) {
	stub := llmtest.JSON(`{"name": "X"}`)
	doc := model.FetchedDocument{URL: "https://x.example", Text: strings.Repeat("a", 10_000) + "TAIL"}

	New(stub, WithContentBudget(500)).Extract(context.Background(), RoleVendor, doc, cateringReq)
	prompt := stub.Calls()[0].Prompt
	assert.NotContains(t, prompt, "TAIL")
	assert.Less(t, len(prompt), 2500)
}

func TestDecode_AlternateKeys(t *testing.T) {
	p, err := Decode([]byte(`{"business_name": "Royal Tent House", "phone": 9830012345, "price_range": "₹20k-40k", "about": "Tent and decor", "url": "https://royaltent.example", "extra": {"nested": true}}`))
	require.NoError(t, err)
	assert.Equal(t, "Royal Tent House", p.Name)
	assert.Equal(t, "9830012345", p.Contact)
	assert.Equal(t, "₹20k-40k", p.Price)
	assert.Equal(t, "Tent and decor", p.Description)
	assert.Equal(t, "https://royaltent.example", p.Website)
}

func TestDecode_NotObject(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	// ₹ is three bytes; cutting inside it drops the partial rune.
	assert.Equal(t, "a", Truncate("a₹b", 2))
	assert.Equal(t, "a₹", Truncate("a₹b", 4))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ok", KindOK.String())
	assert.Equal(t, "bad_json", KindBadJSON.String())
	assert.Equal(t, "missing_name", KindMissingName.String())
	assert.Equal(t, "failed", KindFailed.String())
}
