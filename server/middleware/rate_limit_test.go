package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	limiter := NewRateLimiter(60, 3)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow("alice"), "request %d within burst", i)
	}
	require.False(t, limiter.Allow("alice"), "burst exhausted")
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(60, 1)

	require.True(t, limiter.Allow("alice"))
	require.False(t, limiter.Allow("alice"))
	require.True(t, limiter.Allow("bob"), "each key has its own bucket")
}
