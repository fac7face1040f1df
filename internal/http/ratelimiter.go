package http

import (
	"sync"
	"time"
)

// visitorBucket is one client's token state. refilledAt anchors the refill
// computation; seenAt drives stale-entry pruning.
type visitorBucket struct {
	tokens     float64
	refilledAt time.Time
	seenAt     time.Time
}

// RateLimiter is a token bucket keyed by visitor IP. It throttles page loads
// and form posts alike; the burst absorbs the handful of requests a normal
// page navigation fans out into.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitorBucket
	burst     float64
	perSecond float64
	ttl       time.Duration
	now       func() time.Time
}

// NewRateLimiter constructs a limiter allowing burst requests up front and
// refilling at perSecond. Visitors idle longer than ttl are forgotten.
func NewRateLimiter(burst int, perSecond float64, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors:  make(map[string]*visitorBucket),
		burst:     float64(burst),
		perSecond: perSecond,
		ttl:       ttl,
		now:       time.Now,
	}

	if ttl > 0 {
		ticker := time.NewTicker(ttl)
		go func() {
			for range ticker.C {
				rl.pruneStale()
			}
		}()
	}

	return rl
}

// Allow consumes one token for the visitor if any remain.
func (rl *RateLimiter) Allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.visitors[ip]
	if !ok {
		bucket = &visitorBucket{
			tokens:     rl.burst,
			refilledAt: now,
			seenAt:     now,
		}
		rl.visitors[ip] = bucket
	}

	elapsed := now.Sub(bucket.refilledAt).Seconds()
	if elapsed > 0 {
		bucket.tokens += elapsed * rl.perSecond
		if bucket.tokens > rl.burst {
			bucket.tokens = rl.burst
		}
		bucket.refilledAt = now
	}

	bucket.seenAt = now

	if bucket.tokens < 1 {
		return false
	}

	bucket.tokens -= 1
	return true
}

func (rl *RateLimiter) pruneStale() {
	if rl.ttl <= 0 {
		return
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, bucket := range rl.visitors {
		if now.Sub(bucket.seenAt) > rl.ttl {
			delete(rl.visitors, ip)
		}
	}
}
