//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnp-recruitment/pkg/testutil/containers"
)

func TestRedisStoreSlidingWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)
	s := NewRedisStore(rc.Client, "rnp-test:")
	s.now = func() time.Time { return now }

	for i := range 2 {
		res, err := s.Allow(ctx, "auth:197.243.0.55", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
		now = now.Add(time.Second)
	}

	res, err := s.Allow(ctx, "auth:197.243.0.55", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Date(2026, 6, 12, 9, 1, 0, 0, time.UTC), res.ResetAt.UTC())

	now = now.Add(time.Minute)
	res, err = s.Allow(ctx, "auth:197.243.0.55", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisStoreConcurrentCallersShareLimit(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	s := NewRedisStore(rc.Client, "rnp-test:")

	const limit, callers = 5, 40
	var (
		allowed atomic.Int32
		wg      sync.WaitGroup
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Allow(ctx, "auth:197.243.0.77", limit, time.Minute)
			if assert.NoError(t, err) && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), allowed.Load())
	n, err := rc.Client.ZCard(ctx, "rnp-test:ratelimit:auth:197.243.0.77").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(limit), n, "rejected calls leave no entry behind")
}
