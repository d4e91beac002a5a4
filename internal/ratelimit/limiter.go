package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // burst allowance per account
	RefillRate int  // tokens added per second
	Enabled    bool // when false Wait never blocks
}

// AccountLimiter keeps one token bucket per ad account, created on first use.
type AccountLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	config  Config
	metrics observability.MetricsRegistry
}

// NewAccountLimiter creates a limiter with the given configuration.
func NewAccountLimiter(config Config, metrics observability.MetricsRegistry) *AccountLimiter {
	return &AccountLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

func (l *AccountLimiter) bucket(account string) *TokenBucket {
	l.mu.RLock()
	b, ok := l.buckets[account]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[account]; !ok {
		b = NewTokenBucket(l.config.Capacity, l.config.RefillRate)
		l.buckets[account] = b
	}
	return b
}

// Wait blocks until a call against account may proceed or ctx is done.
func (l *AccountLimiter) Wait(ctx context.Context, account string) error {
	if !l.config.Enabled {
		return nil
	}
	l.metrics.IncrementRateLimitRequests(account)

	b := l.bucket(account)
	counted := false
	for {
		ok, wait := b.Reserve()
		if ok {
			return nil
		}
		if !counted {
			l.metrics.IncrementRateLimitHits(account)
			counted = true
		}
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("rate limit wait for %s: %w", account, ctx.Err())
		}
	}
}

// Stats returns a snapshot of limiter activity per account.
func (l *AccountLimiter) Stats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]Stats, len(l.buckets))
	for account, b := range l.buckets {
		hits, total := b.Stats()
		s := Stats{Account: account, Hits: hits, Total: total}
		if total > 0 {
			s.HitRate = float64(hits) / float64(total)
		}
		stats[account] = s
	}
	return stats
}

// Stats describes limiter activity for one account. Hits counts reservations that found
// the bucket empty, so one delayed call may count several times.
type Stats struct {
	Account string  `json:"account"`
	Hits    int64   `json:"hits"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

func (s Stats) String() string {
	return fmt.Sprintf("account %s: %d/%d hits (%.2f%%)", s.Account, s.Hits, s.Total, s.HitRate*100)
}
