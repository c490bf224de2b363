package application

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheStoresAndExpires(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	cache := newTTLCache[string, int](time.Second, 4, func() time.Time { return current })

	cache.Store("key", 7)
	if got, ok := cache.Get("key"); !ok || got != 7 {
		t.Fatalf("expected cache hit with 7, got %d %v", got, ok)
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be removed")
	}
}

func TestTTLCacheStoreUntil(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	cache := newTTLCache[string, string](time.Hour, 4, func() time.Time { return current })

	cache.StoreUntil("session", "value", current.Add(time.Minute))
	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get("session"); ok {
		t.Fatalf("expected explicit expiry to win over default ttl")
	}
}

func TestTTLCacheEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	cache := newTTLCache[int, int](time.Minute, 2, func() time.Time { return current })

	cache.Store(1, 1)
	current = current.Add(time.Second)
	cache.Store(2, 2)
	current = current.Add(time.Second)
	cache.Store(3, 3)

	if _, ok := cache.Get(1); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if _, ok := cache.Get(3); !ok {
		t.Fatalf("expected newest entry to be present")
	}
}

func TestTTLCacheDeleteFuncAndInvalidate(t *testing.T) {
	t.Parallel()

	cache := newTTLCache[string, int64](time.Minute, 8, time.Now)
	cache.Store("a", 1)
	cache.Store("b", 2)
	cache.Store("c", 1)

	cache.DeleteFunc(func(_ string, userID int64) bool { return userID == 1 })
	if cache.Len() != 1 {
		t.Fatalf("expected one entry left, got %d", cache.Len())
	}

	cache.Invalidate()
	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}

	var nilCache *ttlCache[string, int]
	nilCache.Store("x", 1)
	if _, ok := nilCache.Get("x"); ok {
		t.Fatalf("expected nil cache to miss")
	}
}

func TestAttemptLimiter(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	limiter := newAttemptLimiter(3, 15*time.Minute, func() time.Time { return current })

	for i := 0; i < 3; i++ {
		if !limiter.Allow("Maria") {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
		limiter.Fail(" maria ")
	}
	if limiter.Allow("MARIA") {
		t.Fatalf("expected limiter to block after three failures")
	}
	if !limiter.Allow("joao") {
		t.Fatalf("expected other usernames to be unaffected")
	}

	current = current.Add(16 * time.Minute)
	if !limiter.Allow("maria") {
		t.Fatalf("expected failures to age out of the window")
	}

	limiter.Fail("maria")
	limiter.Reset("maria")
	if !limiter.Allow("maria") {
		t.Fatalf("expected reset to clear failures")
	}
}

func TestAttemptLimiter_SweepsAbandonedUsernames(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	limiter := newAttemptLimiter(3, 15*time.Minute, func() time.Time { return current })

	for i := 0; i < 50; i++ {
		limiter.Fail(fmt.Sprintf("usuario%d", i))
	}
	if got := len(limiter.failures); got != 50 {
		t.Fatalf("expected 50 tracked usernames, got %d", got)
	}

	current = current.Add(16 * time.Minute)
	limiter.Fail("maria")

	if got := len(limiter.failures); got != 1 {
		t.Fatalf("expected stale usernames to be swept, %d remain", got)
	}
	if !limiter.Allow("maria") {
		t.Fatalf("expected a single failure to be allowed")
	}
}
