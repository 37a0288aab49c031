package ratelimit

import (
	"context"
	"sync"
	"time"
)

// OperationClass names a protected operation for quota accounting.
type OperationClass string

const (
	// OpIngest covers platform fetch calls.
	OpIngest OperationClass = "ingest"

	// OpClassify covers AI classification calls.
	OpClassify OperationClass = "classify"
)

// Decision is the outcome of one admission check. A rejection always
// carries a retry-after hint, never a silent drop.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter bounds how often each protected operation may be invoked per
// caller identity per rolling window.
type Limiter interface {
	// Allow records an attempt for (identity, class) and decides it.
	Allow(ctx context.Context, identity string, class OperationClass) (Decision, error)
}

// Quotas maps each operation class to its per-window call budget.
type Quotas map[OperationClass]int

// WindowLimiter is a process-local sliding-window counter. State does
// not survive restarts: best-effort local limiting, not a distributed
// quota. Use RedisLimiter when cross-instance accuracy is required.
type WindowLimiter struct {
	quotas Quotas
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time

	now func() time.Time // overridable in tests
}

// NewWindowLimiter creates a sliding-window limiter with the given
// per-class quotas over a rolling window.
func NewWindowLimiter(quotas Quotas, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		quotas: quotas,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow implements Limiter. Within one window, the Q-th call succeeds
// and the (Q+1)-th is rejected with a non-negative retry-after.
func (l *WindowLimiter) Allow(_ context.Context, identity string, class OperationClass) (Decision, error) {
	quota, ok := l.quotas[class]
	if !ok || quota <= 0 {
		// Unconfigured classes are unlimited.
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	key := identity + "|" + string(class)
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop hits that slid out of the window.
	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= quota {
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.hits[key] = recent
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	recent = append(recent, now)
	l.hits[key] = recent
	return Decision{Allowed: true, Remaining: quota - len(recent)}, nil
}

// SetClock overrides the limiter's time source. Test hook.
func (l *WindowLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
