// Package ratelimit enforces the per-IP submission cap for legacy vendor
// quotes. The persisted submission count is the single authoritative source,
// so the limit holds across server instances; the in-memory window map only
// short-circuits addresses that are already known to be over the limit.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CountStore supplies the authoritative submission counts.
type CountStore interface {
	// CountSince returns how many submissions the address made at or after
	// the given instant.
	CountSince(ctx context.Context, ip string, since time.Time) (int, error)
	// OldestSince returns the submission time of the oldest submission the
	// address made at or after the given instant. The bool is false when
	// there are none.
	OldestSince(ctx context.Context, ip string, since time.Time) (time.Time, bool, error)
}

// Decision is the outcome of a TryConsume call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// Limiter applies a fixed-window per-IP cap backed by CountStore.
type Limiter struct {
	store  CountStore
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	seen  map[string]windowEntry
	sweep time.Time
}

// New constructs a Limiter. Limit must be positive.
func New(store CountStore, limit int, window time.Duration) (*Limiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
		seen:   make(map[string]windowEntry),
	}, nil
}

// WithClock overrides the clock. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// TryConsume decides whether the address may submit another quote right now.
// A denial carries a retry-after hint derived from the oldest submission
// still inside the window.
func (l *Limiter) TryConsume(ctx context.Context, ip string) (Decision, error) {
	now := l.now()
	since := now.Add(-l.window)

	if l.overLimitCached(ip, now) {
		return l.deny(ctx, ip, since, now)
	}

	count, err := l.store.CountSince(ctx, ip, since)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: count submissions: %w", err)
	}

	if count >= l.limit {
		l.remember(ip, count, now)
		return l.deny(ctx, ip, since, now)
	}

	l.remember(ip, count+1, now)
	return Decision{Allowed: true, Remaining: l.limit - count - 1}, nil
}

func (l *Limiter) deny(ctx context.Context, ip string, since, now time.Time) (Decision, error) {
	retry := l.window
	oldest, ok, err := l.store.OldestSince(ctx, ip, since)
	if err == nil && ok {
		if until := oldest.Add(l.window).Sub(now); until > 0 {
			retry = until
		}
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

func (l *Limiter) overLimitCached(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked(now)
	entry, ok := l.seen[ip]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		return false
	}
	return entry.count >= l.limit
}

func (l *Limiter) remember(ip string, count int, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.seen[ip]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		entry = windowEntry{windowStart: now}
	}
	entry.count = count
	l.seen[ip] = entry
}

// cleanupLocked drops entries whose window has passed. Runs at most once per
// window to keep TryConsume cheap.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.sweep) < l.window {
		return
	}
	l.sweep = now
	for ip, entry := range l.seen {
		if now.Sub(entry.windowStart) >= l.window {
			delete(l.seen, ip)
		}
	}
}
