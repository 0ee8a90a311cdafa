package rank

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/event-planner/internal/model"
)

func TestRank_CompletenessOrder(t *testing.T) {
	in := []model.Provider{
		{Name: "Sparse"},
		{Name: "Full", Address: "a", Contact: "9830012345", Price: "p", Rating: "4"},
		{Name: "Middle", Address: "a"},
	}
	out := Rank(in, 5)
	assert.Equal(t, []string{"Full", "Middle", "Sparse"}, names(out))
}

func TestRank_StableOnTies(t *testing.T) {
	in := []model.Provider{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	assert.Equal(t, []string{"A", "B", "C"}, names(Rank(in, 5)))
}

func TestRank_DedupKeepsMostComplete(t *testing.T) {
	in := []model.Provider{
		{Name: "royal caterers"},
		{Name: "Royal  Caterers", Contact: "9830012345"},
		{Name: "ROYAL CATERERS", Address: "Salt Lake", Contact: "9830012345"},
	}
	out := Rank(in, 5)
	assert.Len(t, out, 1)
	assert.Equal(t, "Salt Lake", out[0].Address)
}

func TestRank_TruncatesAndDropsNameless(t *testing.T) {
	in := []model.Provider{{Name: ""}, {Name: "  "}, {Name: "Header", IsHeader: true}}
	for i := 0; i < 10; i++ {
		in = append(in, model.Provider{Name: fmt.Sprintf("Vendor %d", i)})
	}
	out := Rank(in, 6)
	assert.Len(t, out, 6)
	assert.Equal(t, "Vendor 0", out[0].Name)

	assert.Len(t, Rank(in, 0), 10)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []model.Provider{{Name: "B"}, {Name: "A", Address: "x"}}
	Rank(in, 5)
	assert.Equal(t, "B", in[0].Name)
}

// Uniqueness and ordering hold for arbitrary inputs.
func TestRank_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pool := []string{"Alpha", "alpha", "Beta", "BETA ", "Gamma", "Delta", "delta", "Epsilon"}
	for trial := 0; trial < 200; trial++ {
		var in []model.Provider
		n := r.IntN(15)
		for i := 0; i < n; i++ {
			p := model.Provider{Name: pool[r.IntN(len(pool))]}
			if r.IntN(2) == 0 {
				p.Address = "addr"
			}
			if r.IntN(2) == 0 {
				p.Contact = "+91 98300 12345"
			}
			if r.IntN(2) == 0 {
				p.Price = "₹1000"
			}
			in = append(in, p)
		}
		out := Rank(in, 5)
		assert.LessOrEqual(t, len(out), 5)

		keys := map[string]bool{}
		for i, p := range out {
			assert.False(t, keys[Key(p.Name)], "duplicate %q", p.Name)
			keys[Key(p.Name)] = true
			if i > 0 {
				assert.GreaterOrEqual(t, out[i-1].Completeness(), p.Completeness())
			}
		}
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "royal caterers", Key("  Royal\tCATERERS "))
}

func names(ps []model.Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}
