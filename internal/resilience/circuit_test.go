package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("search", 2, time.Minute)
	fail := func(context.Context) (int, error) { return 0, errors.New("down") }

	_, err := Call(context.Background(), b, fail)
	require.Error(t, err)
	assert.False(t, b.Open())

	_, err = Call(context.Background(), b, fail)
	require.Error(t, err)
	assert.True(t, b.Open())

	_, err = Call(context.Background(), b, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("search", 1, 10*time.Second)
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, func(context.Context) (int, error) { return 0, errors.New("down") })
	assert.True(t, b.Open())

	now = now.Add(11 * time.Second)
	assert.False(t, b.Open())

	v, err := Call(context.Background(), b, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.False(t, b.Open())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("search", 1, 10*time.Second)
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, func(context.Context) (int, error) { return 0, errors.New("down") })
	now = now.Add(11 * time.Second)
	_, _ = Call(context.Background(), b, func(context.Context) (int, error) { return 0, errors.New("still down") })
	assert.True(t, b.Open())
}
