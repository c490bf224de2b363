package application

import (
	"strings"
	"sync"
	"time"
)

// attemptLimiter counts failed sign ins per username inside a sliding window.
type attemptLimiter struct {
	mu          sync.Mutex
	now         func() time.Time
	maxFailures int
	window      time.Duration
	failures    map[string][]time.Time
	lastSweep   time.Time
}

func newAttemptLimiter(maxFailures int, window time.Duration, now func() time.Time) *attemptLimiter {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &attemptLimiter{
		now:         now,
		maxFailures: maxFailures,
		window:      window,
		failures:    make(map[string][]time.Time),
	}
}

// Allow reports whether username may try to sign in now.
func (l *attemptLimiter) Allow(username string) bool {
	if l == nil {
		return true
	}
	key := limiterKey(username)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweepLocked(now)
	return len(l.pruneLocked(key, now)) < l.maxFailures
}

// Fail records a failed attempt.
func (l *attemptLimiter) Fail(username string) {
	if l == nil {
		return
	}
	key := limiterKey(username)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweepLocked(now)
	l.failures[key] = append(l.pruneLocked(key, now), now)
}

// Reset clears the failures of username after a successful sign in.
func (l *attemptLimiter) Reset(username string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.failures, limiterKey(username))
	l.mu.Unlock()
}

// sweepLocked drops every username whose failures all left the window. It runs
// at most once per window so usernames that are never retried do not pile up.
func (l *attemptLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key := range l.failures {
		l.pruneLocked(key, now)
	}
}

func (l *attemptLimiter) pruneLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	recent := l.failures[key][:0]
	for _, at := range l.failures[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = recent
	return recent
}

func limiterKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
