package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		service string
		want    Kind
	}{
		{"Catering", Catering},
		{"FOOD & Beverages", Catering},
		{"Decoration", Decoration},
		{"Stage Decor", Decoration},
		{"Photography", Photography},
		{"Videographer", Photography},
		{"Birthday Cake", Cake},
		{"Bakery", Cake},
		{"DJ", Entertainment},
		{"Live Band", Entertainment},
		{"Entertainment", Entertainment},
		{"Venue", Venue},
		{"Banquet Hall", Venue},
		{"Makeup Artist", Generic},
		{"", Generic},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.service))
		})
	}
}

func TestKindOf_FirstFamilyWins(t *testing.T) {
	// Catering is checked before venue.
	assert.Equal(t, Catering, KindOf("Venue catering"))
	assert.Equal(t, Decoration, KindOf("Venue decoration"))
}

func TestKindString(t *testing.T) {
	for _, k := range Kinds {
		assert.NotEmpty(t, k.String())
	}
	assert.Equal(t, "generic", Kind(99).String())
}

func TestChoose_Catering(t *testing.T) {
	s := Choose("Catering")
	assert.Equal(t, Catering, s.Kind)
	assert.Equal(t, []string{"venuelook.com", "weddingwire.in", "wedmegood.com"}, s.PreferredSites())
	assert.Equal(t, 5, s.Limit())
	assert.Contains(t, s.PriceFallback(), "per plate")
	assert.Empty(t, s.OnlineRetailers())
}

func TestQueries_CateringOrder(t *testing.T) {
	req := Request{Service: "Catering", EventType: "Wedding", Location: "Mumbai", Budget: 300000}
	qs := Choose("Catering").Queries(req)
	require.NotEmpty(t, qs)

	assert.Equal(t, "caterers for wedding in Mumbai site:venuelook.com", qs[0].Text)
	assert.Equal(t, "venuelook.com", qs[0].PreferredSite)
	assert.Equal(t, "venuelook.com", qs[1].PreferredSite)

	var sites []string
	for _, q := range qs {
		if q.PreferredSite != "" {
			sites = append(sites, q.PreferredSite)
		}
	}
	assert.Equal(t, []string{"venuelook.com", "venuelook.com", "weddingwire.in", "wedmegood.com"}, sites)

	// Open-web fallbacks come last.
	last := qs[len(qs)-1]
	assert.Empty(t, last.PreferredSite)
	assert.NotContains(t, last.Text, "site:")
	assert.Contains(t, last.Text, "300000")
}

func TestQueries_VenueStaysOnSite(t *testing.T) {
	req := Request{Service: "Venue", EventType: "birthday", Location: "Kolkata", GuestCount: 30, Budget: 12000, VenueType: "banquet hall"}
	s := Choose("Venue")
	assert.True(t, s.SingleSite())
	assert.Equal(t, 6, s.Limit())

	qs := s.Queries(req)
	require.NotEmpty(t, qs)
	assert.Equal(t, "banquet hall for birthday in Kolkata site:venuelook.com", qs[0].Text)
	for _, q := range qs {
		assert.Equal(t, "venuelook.com", q.PreferredSite)
		assert.Contains(t, q.Text, "site:venuelook.com")
	}
	assert.Contains(t, qs[len(qs)-1].Text, "30 guests")

	fb := s.FallbackQuery(req)
	assert.Equal(t, "venues in Kolkata site:venuelook.com", fb.Text)
}

func TestQueries_GenericUsesServiceName(t *testing.T) {
	qs := Choose("Makeup Artist").Queries(Request{Service: "Makeup Artist", EventType: "wedding", Location: "Pune"})
	require.NotEmpty(t, qs)
	assert.True(t, strings.HasPrefix(qs[0].Text, "Makeup Artist for wedding in Pune"))
	assert.Equal(t, "justdial.com", qs[0].PreferredSite)
	assert.Equal(t, "sulekha.com", qs[1].PreferredSite)
}

func TestQueries_NoDoubleSpaces(t *testing.T) {
	qs := Choose("Cake").Queries(Request{Service: "Cake", Location: "Delhi"})
	for _, q := range qs {
		assert.NotContains(t, q.Text, "  ")
		assert.Contains(t, q.Text, "event")
	}
}

func TestDecoration_OnlineRetailers(t *testing.T) {
	s := Choose("Decoration")
	assert.Equal(t, 6, s.Limit())
	retailers := s.OnlineRetailers()
	require.Len(t, retailers, 4)
	assert.Equal(t, "CherishX", retailers[0].Name)
	assert.Equal(t, "https://www.cherishx.com/new-delhi/decoration", retailers[0].DefaultURL("New Delhi, India"))
	assert.Equal(t, "https://www.partypropz.com/", retailers[3].DefaultURL("Delhi"))

	q := s.OnlineQuery(Request{EventType: "Birthday", Location: "Delhi"})
	assert.Equal(t, "online birthday decoration services in Delhi", q.Text)
}

func TestPreferredSitesIsCopy(t *testing.T) {
	s := Choose("Catering")
	sites := s.PreferredSites()
	sites[0] = "example.com"
	assert.Equal(t, "venuelook.com", s.PreferredSites()[0])
}

func TestParseCatalog_Errors(t *testing.T) {
	_, err := ParseCatalog([]byte("strategies: ["))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("strategies:\n  catering:\n    sites: [a.com]\n    terms: [x]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog missing")
}

func TestParseCatalog_DefaultLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("strategies:\n")
	for _, k := range Kinds {
		b.WriteString("  " + k.String() + ":\n    sites: [a.com]\n    terms: [x]\n")
	}
	c, err := ParseCatalog([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, c.For(Catering).Limit())
	assert.Empty(t, c.For(Decoration).OnlineRetailers())
}
