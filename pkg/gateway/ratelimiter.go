package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// ClientRateLimiter implements sliding window rate limiting per client.
// Every tools/call spawns a subprocess, so an unthrottled caller could
// exhaust the host; the window limit bounds call volume and the concurrency
// limit bounds simultaneous children per client.
type ClientRateLimiter struct {
	mu                 sync.Mutex
	requestsPerMinute  int
	maxConcurrent      int
	requests           []time.Time
	concurrentRequests int
}

// NewClientRateLimiter creates a rate limiter with the given limits.
func NewClientRateLimiter(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		requests:          make([]time.Time, 0),
	}
}

// CheckRequestAllowed checks if a request is allowed under rate limits
func (r *ClientRateLimiter) CheckRequestAllowed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.concurrentRequests >= r.maxConcurrent {
		return false, "too many concurrent requests"
	}

	// Drop requests that slid out of the window
	cutoff := time.Now().Add(-time.Minute)
	validRequests := make([]time.Time, 0, len(r.requests))
	for _, reqTime := range r.requests {
		if reqTime.After(cutoff) {
			validRequests = append(validRequests, reqTime)
		}
	}
	r.requests = validRequests

	if len(r.requests) >= r.requestsPerMinute {
		return false, "rate limit exceeded"
	}

	return true, ""
}

// RecordRequestStart records the start of a request
func (r *ClientRateLimiter) RecordRequestStart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, time.Now())
	r.concurrentRequests++
}

// RecordRequestEnd records the end of a request
func (r *ClientRateLimiter) RecordRequestEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.concurrentRequests > 0 {
		r.concurrentRequests--
	}
}

// GetStats returns the current windowed request count and concurrency.
func (r *ClientRateLimiter) GetStats() (requestCount, concurrentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	validRequests := make([]time.Time, 0, len(r.requests))
	for _, reqTime := range r.requests {
		if reqTime.After(cutoff) {
			validRequests = append(validRequests, reqTime)
		}
	}
	r.requests = validRequests

	return len(r.requests), r.concurrentRequests
}

// limiterRegistry keys rate limiters by client address so each remote host
// gets its own budget.
type limiterRegistry struct {
	mu                sync.Mutex
	limiters          map[string]*ClientRateLimiter
	requestsPerMinute int
	maxConcurrent     int
}

func newLimiterRegistry(requestsPerMinute, maxConcurrent int) *limiterRegistry {
	return &limiterRegistry{
		limiters:          make(map[string]*ClientRateLimiter),
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
	}
}

func (lr *limiterRegistry) get(key string) *ClientRateLimiter {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	limiter, ok := lr.limiters[key]
	if !ok {
		limiter = NewClientRateLimiter(lr.requestsPerMinute, lr.maxConcurrent)
		lr.limiters[key] = limiter
	}
	return limiter
}

// clientKey identifies the client for rate limiting, ignoring the ephemeral
// source port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitError maps a limiter denial reason to the matching RPC error.
func rateLimitError(reason string) *RPCError {
	code := RateLimitExceeded
	if reason == "too many concurrent requests" {
		code = TooManyConcurrent
	}
	return &RPCError{Code: code, Message: reason}
}
