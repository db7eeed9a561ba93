package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterTTL bounds how long per-client limiters are kept.
const limiterTTL = time.Hour

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool
	// RPS is the sustained requests per second per client IP.
	RPS float64
	// Burst is the bucket size.
	Burst int
}

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiters{
		limit:       rate.Limit(cfg.RPS),
		burst:       burst,
		now:         time.Now,
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// allow reports whether ip may make another request now.
func (l *clientLimiters) allow(ip string) bool {
	return l.get(ip).AllowN(l.now(), 1)
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Dropping every bucket periodically keeps the map bounded.
	if now := l.now(); now.Sub(l.lastCleanup) > limiterTTL {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = now
	}

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
