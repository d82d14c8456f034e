package ratelimit

import "testing"

func TestAllowConsumesBurst(t *testing.T) {
	l := New()
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("1.2.3.4", 3, 0.0001) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want burst of 3", allowed)
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0.0001) {
		t.Fatalf("first request for key a must pass")
	}
	if l.Allow("a", 1, 0.0001) {
		t.Fatalf("second request for key a must be limited")
	}
	if !l.Allow("b", 1, 0.0001) {
		t.Fatalf("key b has its own bucket")
	}
	if l.Len() != 2 {
		t.Fatalf("tracked keys = %d, want 2", l.Len())
	}
}
