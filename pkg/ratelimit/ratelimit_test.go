package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBlocksOverBudget(t *testing.T) {
	limiter := NewLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("Expected hit %d to be allowed", i+1)
		}
	}

	if limiter.Allow("10.0.0.1") {
		t.Error("Expected fourth hit to be blocked")
	}

	if !limiter.Allow("10.0.0.2") {
		t.Error("Expected a different key to have its own budget")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	limiter := NewLimiter(50*time.Millisecond, 1)

	if !limiter.Allow("k") {
		t.Fatal("Expected first hit to be allowed")
	}
	if limiter.Allow("k") {
		t.Fatal("Expected second immediate hit to be blocked")
	}

	time.Sleep(60 * time.Millisecond)

	if !limiter.Allow("k") {
		t.Error("Expected hit to be allowed after the window slid")
	}
}
