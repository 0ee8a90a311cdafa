// Package anthropic wraps the Messages API for single-turn completions with
// an optional assistant prefill.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client completes one prompt.
type Client interface {
	Complete(ctx context.Context, c Completion) (*Reply, error)
}

// Completion is a single user turn. When Prefill is set it is sent as the
// start of the assistant turn and the reply continues from it. A cached
// System prompt carries an ephemeral cache breakpoint.
type Completion struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	System      string
	CacheSystem bool
	Prompt      string
	Prefill     string
}

// Reply is the model's continuation. Text excludes the prefill.
type Reply struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports whether the reply hit the token limit.
func (r *Reply) Truncated() bool {
	return r != nil && r.StopReason == string(sdk.StopReasonMaxTokens)
}

// Usage counts tokens for one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// APIError is returned when the API answered with a non-2xx status.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string { return e.Err.Error() }

func (e *APIError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by an API error, or 0 when err
// did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Option configures the SDK-backed client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(u))
	}
}

type sdkClient struct {
	msgs sdk.MessageService
}

// NewClient creates a Client backed by anthropic-sdk-go. SDK retries are
// disabled; callers own the retry policy.
func NewClient(apiKey string, opts ...Option) Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&reqOpts)
	}
	c := sdk.NewClient(reqOpts...)
	return &sdkClient{msgs: c.Messages}
}

func (c *sdkClient) Complete(ctx context.Context, in Completion) (*Reply, error) {
	msg, err := c.msgs.New(ctx, params(in))
	if err != nil {
		wrapped := eris.Wrap(err, "anthropic: complete")
		var sdkErr *sdk.Error
		if errors.As(err, &sdkErr) {
			return nil, &APIError{StatusCode: sdkErr.StatusCode, Err: wrapped}
		}
		return nil, wrapped
	}
	return reply(msg), nil
}

func params(in Completion) sdk.MessageNewParams {
	turns := []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(in.Prompt))}
	if in.Prefill != "" {
		turns = append(turns, sdk.NewAssistantMessage(sdk.NewTextBlock(in.Prefill)))
	}
	p := sdk.MessageNewParams{
		Model:       sdk.Model(in.Model),
		MaxTokens:   in.MaxTokens,
		Messages:    turns,
		Temperature: sdk.Float(in.Temperature),
	}
	if in.System != "" {
		block := sdk.TextBlockParam{Text: in.System}
		if in.CacheSystem {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		p.System = []sdk.TextBlockParam{block}
	}
	return p
}

func reply(msg *sdk.Message) *Reply {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return &Reply{
		Text:       b.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
}
