package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAllow(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if !window.Allow(now, 2) || !window.Allow(now.Add(500*time.Millisecond), 2) {
		t.Fatalf("expected first two hits allowed")
	}
	if window.Allow(now.Add(time.Second), 2) {
		t.Fatalf("expected third hit rejected")
	}
	if !window.Allow(now.Add(3*time.Second), 2) {
		t.Fatalf("expected hit allowed after window passed")
	}
}

func TestKeyedLimiterSeparatesKeys(t *testing.T) {
	limiter := NewKeyedLimiter(1, time.Minute)
	now := time.Now()
	if !limiter.Allow("c1", now) || !limiter.Allow("c2", now) {
		t.Fatalf("expected first hit per key allowed")
	}
	if limiter.Allow("c1", now.Add(time.Second)) {
		t.Fatalf("expected c1 limited")
	}
	if !NewKeyedLimiter(0, time.Minute).Allow("c1", now) {
		t.Fatalf("expected disabled limiter to allow")
	}
}
