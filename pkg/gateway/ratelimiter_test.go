package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRateLimiter(t *testing.T) {
	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := NewClientRateLimiter(5, 10)

		for i := 0; i < 5; i++ {
			allowed, reason := limiter.CheckRequestAllowed()
			assert.True(t, allowed)
			assert.Empty(t, reason)
			limiter.RecordRequestStart()
			limiter.RecordRequestEnd()
		}
	})

	t.Run("rejects past the per-minute window", func(t *testing.T) {
		limiter := NewClientRateLimiter(2, 10)

		limiter.RecordRequestStart()
		limiter.RecordRequestEnd()
		limiter.RecordRequestStart()
		limiter.RecordRequestEnd()

		allowed, reason := limiter.CheckRequestAllowed()
		assert.False(t, allowed)
		assert.Equal(t, "rate limit exceeded", reason)
	})

	t.Run("rejects at max concurrency", func(t *testing.T) {
		limiter := NewClientRateLimiter(100, 2)

		limiter.RecordRequestStart()
		limiter.RecordRequestStart()

		allowed, reason := limiter.CheckRequestAllowed()
		assert.False(t, allowed)
		assert.Equal(t, "too many concurrent requests", reason)

		limiter.RecordRequestEnd()
		allowed, _ = limiter.CheckRequestAllowed()
		assert.True(t, allowed)
	})

	t.Run("request end never goes negative", func(t *testing.T) {
		limiter := NewClientRateLimiter(100, 2)

		limiter.RecordRequestEnd()
		limiter.RecordRequestEnd()

		_, concurrent := limiter.GetStats()
		assert.Equal(t, 0, concurrent)
	})

	t.Run("stats report windowed counts", func(t *testing.T) {
		limiter := NewClientRateLimiter(100, 10)

		limiter.RecordRequestStart()
		limiter.RecordRequestStart()
		limiter.RecordRequestEnd()

		requests, concurrent := limiter.GetStats()
		assert.Equal(t, 2, requests)
		assert.Equal(t, 1, concurrent)
	})
}

func TestLimiterRegistry(t *testing.T) {
	registry := newLimiterRegistry(60, 10)

	a := registry.get("10.0.0.1")
	b := registry.get("10.0.0.2")
	assert.NotSame(t, a, b)

	// Same client key gets the same budget back
	assert.Same(t, a, registry.get("10.0.0.1"))
}

func TestClientKey(t *testing.T) {
	t.Run("strips the ephemeral port", func(t *testing.T) {
		r, err := http.NewRequest(http.MethodPost, "/rpc", nil)
		require.NoError(t, err)
		r.RemoteAddr = "192.168.1.7:54912"
		assert.Equal(t, "192.168.1.7", clientKey(r))
	})

	t.Run("falls back to the raw address", func(t *testing.T) {
		r, err := http.NewRequest(http.MethodPost, "/rpc", nil)
		require.NoError(t, err)
		r.RemoteAddr = "unix-socket"
		assert.Equal(t, "unix-socket", clientKey(r))
	})
}

func TestRateLimitError(t *testing.T) {
	assert.Equal(t, RateLimitExceeded, rateLimitError("rate limit exceeded").Code)
	assert.Equal(t, TooManyConcurrent, rateLimitError("too many concurrent requests").Code)
}
