// Package cost estimates the USD spend of outbound API calls and records it
// on the planner metrics registry.
package cost

import (
	"github.com/sells-group/event-planner/internal/metrics"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaRate             `yaml:"jina" mapstructure:"jina"`
	Serper    SerperRate           `yaml:"serper" mapstructure:"serper"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaRate holds Jina Reader pricing.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// SerperRate holds Serper pricing.
type SerperRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Tokens is the token usage of one Claude call.
type Tokens struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, t Tokens) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	perTok := func(n int64, price float64) float64 { return float64(n) / 1e6 * price }
	return perTok(t.Input, rate.Input) +
		perTok(t.Output, rate.Output) +
		perTok(t.CacheWrite, rate.Input*rate.CacheWriteMul) +
		perTok(t.CacheRead, rate.Input*rate.CacheReadMul)
}

// Jina computes the cost for Jina Reader token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// SerperQuery returns the flat cost per Serper query.
func (c *Calculator) SerperQuery() float64 {
	return c.rates.Serper.PerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Jina:   JinaRate{PerMTok: 0.02},
		Serper: SerperRate{PerQuery: 0.001},
	}
}

// Default prices with DefaultRates.
var Default = NewCalculator(DefaultRates())

// Record adds usd to the spend counter for provider and phase.
// Non-positive amounts are ignored.
func Record(provider, phase string, usd float64) {
	if usd <= 0 {
		return
	}
	metrics.SpendUSD.WithLabelValues(provider, phase).Add(usd)
}
