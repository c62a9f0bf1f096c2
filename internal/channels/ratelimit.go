package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys caps the number of tracked authors so a flood of distinct
// senders cannot grow memory without bound.
const maxTrackedKeys = 4096

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter is a set of per-author token buckets.
// Safe for concurrent use.
type UserRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewUserRateLimiter allows perMinute relays per author with the given burst.
// It returns nil when perMinute <= 0; a nil limiter allows everything.
func NewUserRateLimiter(perMinute float64, burst int) *UserRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now, consuming a token if so.
func (r *UserRateLimiter) Allow(key string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	e, ok := r.entries[key]
	if !ok {
		if len(r.entries) >= maxTrackedKeys {
			r.prune(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// prune drops idle entries, then arbitrary ones if still at the cap.
// An entry idle for burst/limit has a full bucket, so dropping it is lossless.
func (r *UserRateLimiter) prune(now time.Time) {
	idle := time.Duration(float64(r.burst) / float64(r.limit) * float64(time.Second))
	for k, e := range r.entries {
		if now.Sub(e.lastSeen) >= idle {
			delete(r.entries, k)
		}
	}
	for k := range r.entries {
		if len(r.entries) < maxTrackedKeys {
			break
		}
		delete(r.entries, k)
	}
}
