package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	rl := New()
	rpm := 10

	for i := 0; i < 10; i++ {
		if !rl.Allow("gallery", rpm) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("gallery", rpm) {
		t.Error("11th request should be denied")
	}
}

func TestLimiterUnlimited(t *testing.T) {
	rl := New()

	for i := 0; i < 1000; i++ {
		if !rl.Allow("gallery", 0) {
			t.Fatalf("request %d should be allowed (unlimited)", i+1)
		}
	}
}

func TestLimiterRefill(t *testing.T) {
	rl := New()
	rpm := 60 // 1 token per second

	for i := 0; i < 60; i++ {
		rl.Allow("docs", rpm)
	}
	if rl.Allow("docs", rpm) {
		t.Error("should be rate limited after exhausting tokens")
	}

	time.Sleep(1100 * time.Millisecond)

	if !rl.Allow("docs", rpm) {
		t.Error("should be allowed after refill")
	}
}

func TestLimiterRetryAfter(t *testing.T) {
	rl := New()
	rpm := 60

	for i := 0; i < 60; i++ {
		rl.Allow("docs", rpm)
	}

	retryAfter := rl.RetryAfter("docs", rpm)
	if retryAfter < 1 {
		t.Errorf("expected retry-after >= 1, got %d", retryAfter)
	}
}

func TestLimiterIndependentResources(t *testing.T) {
	rl := New()

	for i := 0; i < 5; i++ {
		if !rl.Allow("a", 5) {
			t.Fatalf("resource a request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a", 5) {
		t.Error("resource a should be rate limited")
	}
	if !rl.Allow("b", 5) {
		t.Error("resource b should not be affected by a's limit")
	}
}

func TestLimiterCleanup(t *testing.T) {
	rl := New()

	rl.Allow("a", 10)
	rl.Allow("b", 10)

	if len(rl.buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rl.buckets))
	}

	rl.mu.Lock()
	rl.buckets["a"].lastRefill = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	rl.Cleanup(1 * time.Hour)

	rl.mu.Lock()
	count := len(rl.buckets)
	rl.mu.Unlock()

	if count != 1 {
		t.Errorf("expected 1 bucket after cleanup, got %d", count)
	}
}
