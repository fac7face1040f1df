package http

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 3, time.Minute)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	visitor := "203.0.113.7"

	for i := 0; i < 3; i++ {
		if !rl.Allow(visitor) {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	if rl.Allow(visitor) {
		t.Fatalf("expected fourth request to be denied")
	}

	current = current.Add(time.Second)

	if !rl.Allow(visitor) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimiterTracksVisitorsIndependently(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 0.1, time.Minute)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	if !rl.Allow("203.0.113.7") {
		t.Fatalf("expected first visitor to be allowed")
	}
	if rl.Allow("203.0.113.7") {
		t.Fatalf("expected first visitor to be exhausted")
	}
	if !rl.Allow("198.51.100.9") {
		t.Fatalf("expected second visitor to start with a full bucket")
	}
}

func TestRateLimiterPrunesIdleVisitors(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 0.1, time.Minute)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	rl.Allow("203.0.113.7")
	if len(rl.visitors) != 1 {
		t.Fatalf("expected one tracked visitor, got %d", len(rl.visitors))
	}

	current = current.Add(2 * time.Minute)
	rl.pruneStale()

	if len(rl.visitors) != 0 {
		t.Fatalf("expected idle visitor to be pruned, got %d entries", len(rl.visitors))
	}
}
