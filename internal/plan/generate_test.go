package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/event-planner/internal/llm"
	"github.com/sells-group/event-planner/internal/llm/llmtest"
	"github.com/sells-group/event-planner/internal/model"
)

var birthday = model.EventPlan{
	EventName:   "Aarav turns 5",
	Category:    "Birthday",
	GuestCount:  30,
	TotalBudget: 100000,
	Location:    "Kolkata",
}

// phased answers Classify calls by phase.
func phased(answers map[string]string) *llmtest.Stub {
	return &llmtest.Stub{OnClassify: func(req llm.Request) (string, error) {
		a, ok := answers[req.Phase]
		if !ok {
			return "", errors.New("unexpected phase " + req.Phase)
		}
		return a, nil
	}}
}

func TestGenerate_StrictJSON(t *testing.T) {
	stub := phased(map[string]string{
		"requirements": `["Venue", "Catering", "Decoration", "Cake"]`,
		"budget":       `{"Venue": 40000, "Catering": 35000, "Decoration": 15000, "Cake": 10000}`,
	})
	lines, err := NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)

	require.Len(t, lines, 4)
	assert.Equal(t, model.NewServiceLine("Venue", 40000), lines[0])
	assert.Equal(t, 100000, model.SumBudgets(lines))
	for _, l := range lines {
		assert.Equal(t, model.ServiceStatusPending, l.Status)
		assert.True(t, l.Consistent())
	}

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Prompt, "Guest count: 30")
	assert.Contains(t, calls[1].Prompt, "Venue, Catering, Decoration, Cake")
	assert.Contains(t, calls[1].Prompt, "₹100000")
}

func TestGenerate_BulletsAndPairs(t *testing.T) {
	stub := phased(map[string]string{
		"requirements": "Sure! Here is what you need:\n- Venue: a small hall\n- Catering (buffet)\n* Decoration\n1. Cake",
		"budget":       "Venue: ₹40,000\nCatering - Rs 35,000\nDecoration 15k\nCake: 10000",
	})
	lines, err := NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"Venue", "Catering", "Decoration", "Cake"}, names(lines))
	assert.Equal(t, []int{40000, 35000, 15000, 10000}, budgets(lines))
}

func TestGenerate_DefaultsAndEqualSplit(t *testing.T) {
	stub := phased(map[string]string{
		"requirements": "I cannot help with that.",
		"budget":       "No idea.",
	})
	lines, err := NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)
	assert.Equal(t, []string{"Venue", "Catering", "Decoration", "Cake", "Entertainment"}, names(lines))
	assert.Equal(t, []int{20000, 20000, 20000, 20000, 20000}, budgets(lines))
}

func TestGenerate_LLMDown(t *testing.T) {
	stub := &llmtest.Stub{OnClassify: func(llm.Request) (string, error) { return "", errors.New("529 overloaded") }}
	ev := birthday
	ev.Category = "Corporate offsite"
	lines, err := NewGenerator(stub).Generate(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Venue", "Catering", "AV Equipment", "Photography"}, names(lines))
	assert.Equal(t, 100000, model.SumBudgets(lines))
}

func TestGenerate_Rescales(t *testing.T) {
	stub := phased(map[string]string{
		"requirements": `["Venue", "Catering"]`,
		"budget":       `{"Venue": 60000, "Catering": 60000}`,
	})
	lines, err := NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)
	assert.Equal(t, []int{50000, 50000}, budgets(lines))

	// Within tolerance: untouched.
	stub = phased(map[string]string{
		"requirements": `["Venue", "Catering"]`,
		"budget":       `{"Venue": 52000, "Catering": 50000}`,
	})
	lines, err = NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)
	assert.Equal(t, []int{52000, 50000}, budgets(lines))

	// Disabled.
	stub = phased(map[string]string{
		"requirements": `["Venue", "Catering"]`,
		"budget":       `{"Venue": 60000, "Catering": 60000}`,
	})
	lines, err = NewGenerator(stub, WithRescale(false, 0)).Generate(context.Background(), birthday)
	require.NoError(t, err)
	assert.Equal(t, []int{60000, 60000}, budgets(lines))
}

func TestGenerate_PartialBudgetObject(t *testing.T) {
	stub := phased(map[string]string{
		"requirements": `["Venue", "Catering", "Cake"]`,
		"budget":       "```json\n{\"venue\": \"₹50,000\", \"Catering\": 30000}\n```",
	})
	lines, err := NewGenerator(stub).Generate(context.Background(), birthday)
	require.NoError(t, err)
	assert.Equal(t, []int{50000, 30000, 20000}, budgets(lines))
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &llmtest.Stub{OnClassify: func(llm.Request) (string, error) { return "", context.Canceled }}
	_, err := NewGenerator(stub).Generate(ctx, birthday)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"50000", 50000, true},
		{"₹1,50,000", 150000, true},
		{"Rs. 35,000 approx", 35000, true},
		{"15k", 15000, true},
		{"2.5 lakhs", 250000, true},
		{"3L", 300000, true},
		{"1 lakh", 100000, true},
		{"none", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServiceArray_Objects(t *testing.T) {
	got, ok := ParseServiceArray(`Here: [{"service": "Venue"}, {"name": "DJ"}, "venue", ""]`)
	require.True(t, ok)
	assert.Equal(t, []string{"Venue", "DJ"}, got)

	_, ok = ParseServiceArray(`[]`)
	assert.False(t, ok)
}

func TestParseBullets_None(t *testing.T) {
	_, ok := ParseBullets("Venue and catering are enough.")
	assert.False(t, ok)
}

func TestRescale(t *testing.T) {
	lines := []model.ServiceLine{
		model.NewServiceLine("A", 1),
		model.NewServiceLine("B", 1),
		model.NewServiceLine("C", 1),
	}
	out := Rescale(lines, 100)
	assert.Equal(t, 100, model.SumBudgets(out))
	assert.Equal(t, 1, lines[0].Budget, "input untouched")

	zero := []model.ServiceLine{model.NewServiceLine("A", 0), model.NewServiceLine("B", 0)}
	assert.Equal(t, []int{50, 50}, budgets(Rescale(zero, 100)))
	assert.Empty(t, Rescale(nil, 100))
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{"Venue", "Catering", "Decoration"}, builtinDefaults.ServicesFor("Space party?"))
	assert.Contains(t, builtinDefaults.ServicesFor("Wedding Reception"), "Makeup Artist")

	_, err := ParseDefaults([]byte("families: []"))
	assert.Error(t, err)
	_, err = ParseDefaults([]byte("families: ["))
	assert.Error(t, err)
}

func names(lines []model.ServiceLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.ServiceName
	}
	return out
}

func budgets(lines []model.ServiceLine) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Budget
	}
	return out
}
