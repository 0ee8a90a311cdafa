// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/event-planner/internal/llm"
)

// Stub answers requests with canned text chosen by OnJSON/OnClassify.
// Unset handlers fail the call.
type Stub struct {
	OnJSON     func(req llm.Request) (string, error)
	OnClassify func(req llm.Request) (string, error)

	mu    sync.Mutex
	calls []llm.Request
}

// JSON returns a Stub whose ExtractJSON always answers with text.
func JSON(text string) *Stub {
	return &Stub{OnJSON: func(llm.Request) (string, error) { return text, nil }}
}

// ExtractJSON implements llm.Client.
func (s *Stub) ExtractJSON(_ context.Context, req llm.Request) (json.RawMessage, error) {
	s.record(req)
	if s.OnJSON == nil {
		return nil, eris.New("llmtest: no json handler")
	}
	text, err := s.OnJSON(req)
	if err != nil {
		return nil, err
	}
	return llm.ParseJSON(text, req.Shape)
}

// Classify implements llm.Client.
func (s *Stub) Classify(_ context.Context, req llm.Request) (string, error) {
	s.record(req)
	if s.OnClassify == nil {
		return "", eris.New("llmtest: no classify handler")
	}
	return s.OnClassify(req)
}

// Calls returns a copy of every request seen so far.
func (s *Stub) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}

func (s *Stub) record(req llm.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
}

var _ llm.Client = (*Stub)(nil)
