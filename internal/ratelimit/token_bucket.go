// Package ratelimit throttles outbound platform calls per ad account with token buckets.
//
// The platform enforces usage limits per ad account, so a burst of deployments against
// one account is smoothed out instead of being rejected upstream.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket. It starts full, holds at most capacity
// tokens and refills at refillRate tokens per second.
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
	hitCount   int64
	totalCount int64
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// refill must be called with mu held.
func (tb *TokenBucket) refill() {
	now := tb.now()
	tokensToAdd := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.Reserve()
	return ok
}

// Reserve consumes one token if available. Otherwise it returns how long until the
// next token is due.
func (tb *TokenBucket) Reserve() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.totalCount++
	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	tb.hitCount++
	if tb.refillRate <= 0 {
		return false, time.Second
	}
	perToken := time.Second / time.Duration(tb.refillRate)
	wait := perToken - tb.now().Sub(tb.lastRefill)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return false, wait
}

// Stats returns how many reservations found the bucket empty and how many were made.
func (tb *TokenBucket) Stats() (hits, total int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.hitCount, tb.totalCount
}
