package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("bad request")))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 503)))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", NewTransientError(errors.New("x"), 429))))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("jina: request: unexpected EOF")))
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(NewTransientError(errors.New("x"), 429)))
	assert.True(t, IsRateLimit(fmt.Errorf("search: %w", NewTransientError(errors.New("x"), 429))))
	assert.False(t, IsRateLimit(NewTransientError(errors.New("x"), 503)))
	assert.False(t, IsRateLimit(errors.New("429")))
}

func TestClassify(t *testing.T) {
	base := errors.New("serper: unexpected status")

	assert.NoError(t, Classify(nil, 503, 0))

	err := Classify(base, 429, 4*time.Second)
	assert.True(t, IsRateLimit(err))
	assert.Equal(t, 4*time.Second, RetryAfter(err))
	assert.ErrorIs(t, err, base)

	err = Classify(base, 404, 0)
	assert.Same(t, base, err)
	assert.False(t, IsTransient(err))

	assert.Same(t, base, Classify(base, 0, 0))
}

func TestRetryAfter_Plain(t *testing.T) {
	assert.Zero(t, RetryAfter(errors.New("x")))
	assert.Zero(t, RetryAfter(NewTransientError(errors.New("x"), 503)))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 422, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
