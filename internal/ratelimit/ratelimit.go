// Package ratelimit provides token bucket limiters keyed by bridge.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// NewRateLimiter creates a token bucket limiter replenished at
// requestsPerSecond with the given burst. A burst below 1 is raised to 1.
func NewRateLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Registry hands out one limiter per key (for example "<host>/lights").
// Limiters are created lazily and live as long as the registry.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewRegistry creates a registry whose limiters allow requestsPerSecond with burst.
func NewRegistry(requestsPerSecond float64, burst int) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		rps:      requestsPerSecond,
		burst:    burst,
	}
}

// For returns the limiter for key, creating it on first use.
func (r *Registry) For(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[key]
	if !ok {
		limiter = NewRateLimiter(r.rps, r.burst)
		r.limiters[key] = limiter
	}

	return limiter
}

// Len returns the number of limiters created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
