package cost

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/event-planner/internal/metrics"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"sonnet": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Jina:   JinaRate{PerMTok: 0.02},
		Serper: SerperRate{PerQuery: 0.001},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		model string
		usage Tokens
		want  float64
	}{
		{
			name:  "haiku simple",
			model: "haiku",
			usage: Tokens{Input: 1000000, Output: 100000},
			want:  0.80 + 0.40,
		},
		{
			name:  "haiku with cache",
			model: "haiku",
			usage: Tokens{Input: 500000, Output: 50000, CacheWrite: 200000, CacheRead: 300000},
			// in 0.40, out 0.20, cw 0.20, cr 0.024
			want: 0.824,
		},
		{
			name:  "sonnet output heavy",
			model: "sonnet",
			usage: Tokens{Input: 10000, Output: 200000},
			want:  0.03 + 3.00,
		},
		{
			name:  "unknown model",
			model: "gpt-4",
			usage: Tokens{Input: 1000000, Output: 1000000},
			want:  0,
		},
		{
			name:  "zero usage",
			model: "sonnet",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.usage), 0.0001)
		})
	}
}

func TestJinaAndSerper(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.02, calc.Jina(1000000), 0.0001)
	assert.InDelta(t, 0.0, calc.Jina(0), 0.0001)
	assert.InDelta(t, 0.001, calc.SerperQuery(), 0.00001)
}

func TestDefaultRatesCoverConfiguredModel(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()
	_, ok := rates.Anthropic["claude-haiku-4-5-20251001"]
	assert.True(t, ok)
	assert.Greater(t, Default.SerperQuery(), 0.0)
}

func TestRecord(t *testing.T) {
	c := metrics.SpendUSD.WithLabelValues("test", "record")
	before := testutil.ToFloat64(c)

	Record("test", "record", 0.25)
	Record("test", "record", 0)
	Record("test", "record", -1)

	assert.InDelta(t, before+0.25, testutil.ToFloat64(c), 0.00001)
}
