package ratelimit

import (
	"testing"
	"time"
)

func TestAllowExhaustsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("a", 3, 0) {
			t.Fatalf("request %d should pass with capacity 3", i+1)
		}
	}
	if l.Allow("a", 3, 0) {
		t.Fatalf("fourth request should be rejected")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first request for a should pass")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("a is exhausted")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("b has its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 50) {
		t.Fatalf("first request should pass")
	}
	if l.Allow("a", 1, 50) {
		t.Fatalf("bucket should be empty immediately after")
	}
	time.Sleep(40 * time.Millisecond) // 50/s refill restores a token
	if !l.Allow("a", 1, 50) {
		t.Fatalf("bucket should have refilled")
	}
}
