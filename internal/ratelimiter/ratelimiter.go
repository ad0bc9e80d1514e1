// Package ratelimiter throttles best-effort work such as client I/O
// statistics reports. It wraps golang.org/x/time/rate token buckets.
package ratelimiter

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// maxKeys bounds the number of per-key buckets kept at once. When the limit
// is reached the bucket table is reset.
const maxKeys = 4096

// RateLimiter admits events at a sustained rate with a burst allowance,
// globally and per key (typically the client address).
//
// A zero rate disables limiting entirely.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	global *rate.Limiter

	mu     sync.Mutex
	perKey map[string]*rate.Limiter
	limit  rate.Limit
	burst  int

	dropped atomic.Uint64
}

// New creates a limiter admitting perSecond events with the given burst,
// applied both globally and to each key. A burst of zero is raised to one.
func New(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		global: rate.NewLimiter(limit, burst),
		perKey: make(map[string]*rate.Limiter),
		limit:  limit,
		burst:  burst,
	}
}

// Allow consumes a global token. Rejections are counted.
func (r *RateLimiter) Allow() bool {
	if r.global.Allow() {
		return true
	}
	r.dropped.Add(1)
	return false
}

// AllowKey consumes a token from the key's bucket and then the global one.
// One noisy key cannot starve the others.
func (r *RateLimiter) AllowKey(key string) bool {
	if r.limit == rate.Inf {
		return true
	}

	r.mu.Lock()
	l, ok := r.perKey[key]
	if !ok {
		if len(r.perKey) >= maxKeys {
			clear(r.perKey)
		}
		l = rate.NewLimiter(r.limit, r.burst)
		r.perKey[key] = l
	}
	r.mu.Unlock()

	if !l.Allow() {
		r.dropped.Add(1)
		return false
	}
	return r.Allow()
}

// SetLimit changes the sustained rate for the global bucket and all
// per-key buckets.
func (r *RateLimiter) SetLimit(perSecond float64) {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.limit = limit
	r.global.SetLimit(limit)
	for _, l := range r.perKey {
		l.SetLimit(limit)
	}
}

// Dropped returns how many events were rejected so far.
func (r *RateLimiter) Dropped() uint64 {
	return r.dropped.Load()
}
