// Package llm is the planner's LLM oracle. Callers ask for either a JSON
// document or a short free-text answer; pacing, retry and cost logging are
// handled here so call sites stay declarative.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidJSON is returned by ExtractJSON when the model output does not
// parse as JSON of the requested shape.
var ErrInvalidJSON = eris.New("llm: invalid json")

// Shape is the top-level JSON value the caller expects.
type Shape int

const (
	Object Shape = iota
	Array
)

func (s Shape) open() string {
	if s == Array {
		return "["
	}
	return "{"
}

// Request is a single prompt.
type Request struct {
	// Phase labels the call in cost and retry logs (e.g. "extract", "budget").
	Phase  string
	System string
	Prompt string
	Shape  Shape
	// MaxTokens overrides the configured default when positive.
	MaxTokens int64
}

// Client is the oracle interface consumed by the pipeline stages.
type Client interface {
	// ExtractJSON returns the model's JSON answer. The returned bytes are
	// valid JSON of req.Shape, otherwise the error wraps ErrInvalidJSON.
	ExtractJSON(ctx context.Context, req Request) (json.RawMessage, error)
	// Classify returns the model's trimmed free-text answer.
	Classify(ctx context.Context, req Request) (string, error)
}

// CleanJSON extracts the outermost JSON value of the given shape from text
// that may carry markdown code fences or prose around it.
func CleanJSON(text string, shape Shape) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	open, closer := "{", "}"
	if shape == Array {
		open, closer = "[", "]"
	}
	start := strings.Index(text, open)
	end := strings.LastIndex(text, closer)
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// ParseJSON cleans text and validates that it is JSON of the given shape.
func ParseJSON(text string, shape Shape) (json.RawMessage, error) {
	cleaned := CleanJSON(text, shape)
	if !strings.HasPrefix(cleaned, shape.open()) || !json.Valid([]byte(cleaned)) {
		return nil, eris.Wrapf(ErrInvalidJSON, "llm: parse %d chars", len(text))
	}
	return json.RawMessage(cleaned), nil
}
