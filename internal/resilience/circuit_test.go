package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(context.Context) (string, error) { return "", errors.New("down") }
func succeeding(context.Context) (string, error) { return "up", nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	assert.Equal(t, StateClosed, b.State())
	_, _ = Call(ctx, b, failing)
	assert.Equal(t, StateOpen, b.State())

	called := false
	_, err := Call(ctx, b, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	require.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Now()
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		OnStateChange: func(from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	assert.Equal(t, StateOpen, b.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	val, err := Call(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, "up", val)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = Call(ctx, b, failing)
	}
	now = now.Add(2 * time.Second)
	_, err := Call(ctx, b, failing)
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_CanceledContextIsNotFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = Call(ctx, b, failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
