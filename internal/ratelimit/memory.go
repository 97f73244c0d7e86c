package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// janitorInterval is how often stale keys are swept out. Allow also filters
// lazily, so the sweep only bounds memory, not correctness.
const janitorInterval = time.Minute

// MemoryLimiter rate limits with a per-key sliding window of attempt
// timestamps. Exact within one process; use the Redis backend when several
// gateway instances must share a budget.
type MemoryLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	attempts map[string][]time.Time

	stopCh    chan struct{}
	closeOnce sync.Once

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryLimiter creates a sliding-window limiter allowing limit attempts
// per key per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	l := &MemoryLimiter{
		limit:    limit,
		window:   window,
		attempts: make(map[string][]time.Time),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	go l.janitorLoop()
	return l
}

// Allow records an attempt for key if the key has budget left. A denied
// attempt is not recorded, so being limited does not extend the limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) api.RateDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	var recent []time.Time
	for _, t := range l.attempts[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.attempts[key] = recent
		logging.Warn("RateLimit", "Rate limit exceeded for %s (%d attempts in %v)", key, len(recent), l.window)
		// Budget frees up when the oldest recorded attempt leaves the window.
		return api.RateDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: recent[0].Add(l.window).Sub(now),
		}
	}

	recent = append(recent, now)
	l.attempts[key] = recent
	return api.RateDecision{
		Allowed:   true,
		Remaining: l.limit - len(recent),
	}
}

// Close stops the janitor.
func (l *MemoryLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.stopCh) })
	return nil
}

func (l *MemoryLimiter) janitorLoop() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops keys whose every attempt has left the window.
func (l *MemoryLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	for key, attempts := range l.attempts {
		var recent []time.Time
		for _, t := range attempts {
			if t.After(windowStart) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = recent
		}
	}
}

// keyCount reports how many keys hold recorded attempts. Used by tests.
func (l *MemoryLimiter) keyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
