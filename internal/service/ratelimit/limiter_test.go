package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowDrainsBucket(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.False(t, l.Allow("yahoo", 2, 1))
	// other keys have their own bucket
	assert.True(t, l.Allow("csv", 1, 1))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("yahoo", 2, 1))
	assert.False(t, l.Allow("yahoo", 2, 1))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New()
	require.NoError(t, l.Wait(context.Background(), "k", 1, 0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "k", 1, 0.001)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReturnsAfterRefill(t *testing.T) {
	l := New()
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "k", 1, 100))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "k", 1, 100))
	assert.Less(t, time.Since(start), time.Second)
}
