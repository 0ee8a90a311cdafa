package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/config"
	"github.com/sells-group/event-planner/internal/cost"
	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/ratelimit"
	"github.com/sells-group/event-planner/internal/resilience"
	"github.com/sells-group/event-planner/pkg/anthropic"
)

// AnthropicClient implements Client over the Anthropic Messages API.
type AnthropicClient struct {
	api         anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	pacer       *ratelimit.Pacer
	policy      resilience.Policy
}

// NewAnthropicClient wires the Messages API with the process-wide pacer
// and the shared retry policy.
func NewAnthropicClient(api anthropic.Client, cfg config.AnthropicConfig, pacer *ratelimit.Pacer, policy resilience.Policy) *AnthropicClient {
	if pacer == nil {
		pacer = ratelimit.New()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := min(max(cfg.Temperature, 0), config.MaxTemperature)
	if temperature != cfg.Temperature {
		zap.L().Warn("llm: temperature clamped",
			zap.Float64("configured", cfg.Temperature),
			zap.Float64("used", temperature),
		)
	}
	return &AnthropicClient{
		api:         api,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		pacer:       pacer,
		policy:      policy,
	}
}

// ExtractJSON prefills the assistant turn with the opening bracket so the
// model answers in JSON, then validates the result.
func (c *AnthropicClient) ExtractJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	prefill := req.Shape.open()
	text, err := c.complete(ctx, req, prefill)
	if err != nil {
		return nil, err
	}
	raw, err := ParseJSON(prefill+text, req.Shape)
	if err != nil {
		zap.L().Debug("llm: unparseable json",
			zap.String("phase", req.Phase),
			zap.Int("chars", len(text)),
		)
		return nil, err
	}
	return raw, nil
}

// Classify returns a short free-text answer.
func (c *AnthropicClient) Classify(ctx context.Context, req Request) (string, error) {
	text, err := c.complete(ctx, req, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *AnthropicClient) complete(ctx context.Context, req Request, prefill string) (string, error) {
	in := anthropic.Completion{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      req.System,
		CacheSystem: req.System != "",
		Prompt:      req.Prompt,
		Prefill:     prefill,
	}
	if req.MaxTokens > 0 {
		in.MaxTokens = req.MaxTokens
	}

	policy := c.policy
	retryLog := resilience.RetryLogger("anthropic", req.Phase)
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.LLMRetries.WithLabelValues(req.Phase).Inc()
		retryLog(attempt, delay, err)
	}

	r, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*anthropic.Reply, error) {
		if err := c.pacer.Wait(ctx, ratelimit.LLM); err != nil {
			return nil, err
		}
		r, err := c.api.Complete(ctx, in)
		if err != nil {
			return nil, resilience.Classify(err, anthropic.StatusCode(err), 0)
		}
		return r, nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s", req.Phase)
	}

	c.attribute(req.Phase, r)
	return r.Text, nil
}

// attribute logs token usage with its estimated price and adds it to the
// spend counter.
func (c *AnthropicClient) attribute(phase string, r *anthropic.Reply) {
	usd := cost.Default.Claude(c.model, cost.Tokens{
		Input:      r.Usage.Input,
		Output:     r.Usage.Output,
		CacheWrite: r.Usage.CacheWrite,
		CacheRead:  r.Usage.CacheRead,
	})
	zap.L().Info("cost attribution",
		zap.String("model", c.model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", r.Usage.Input),
		zap.Int64("output_tokens", r.Usage.Output),
		zap.Int64("cache_read_tokens", r.Usage.CacheRead),
		zap.Bool("truncated", r.Truncated()),
		zap.Float64("estimated_cost_usd", usd),
	)
	cost.Record("anthropic", phase, usd)
}
