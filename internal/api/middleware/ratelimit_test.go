package middleware

import (
	"testing"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	l := NewRateLimiter(10, true)

	for i := 0; i < 10; i++ {
		if !l.Allow("user:alice") {
			t.Fatalf("request %d rejected within the per-minute budget", i+1)
		}
	}
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	l := NewRateLimiter(5, true)

	for i := 0; i < 5; i++ {
		if !l.Allow("user:alice") {
			t.Fatalf("request %d rejected within the burst", i+1)
		}
	}
	if l.Allow("user:alice") {
		t.Error("request over the per-minute budget was allowed")
	}
}

func TestRateLimiterIsolatesCredentials(t *testing.T) {
	l := NewRateLimiter(3, true)

	for i := 0; i < 3; i++ {
		l.Allow("user:alice")
	}
	if l.Allow("user:alice") {
		t.Fatal("alice should be over budget")
	}
	if !l.Allow("user:bob") {
		t.Error("bob's budget must not be affected by alice's requests")
	}
	if !l.Allow("ip:192.0.2.1") {
		t.Error("anonymous clients keep a separate budget")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(1, false)

	for i := 0; i < 50; i++ {
		if !l.Allow("user:alice") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestRateLimiterZeroBudgetDisables(t *testing.T) {
	l := NewRateLimiter(0, true)

	if !l.Allow("user:alice") {
		t.Error("a zero per-minute budget must not lock everyone out")
	}
}
