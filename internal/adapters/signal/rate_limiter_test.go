package signal

import (
	"testing"
	"time"
)

func TestMessageRateLimiter(t *testing.T) {
	rl := NewMessageRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two messages rejected")
	}
	if rl.Allow("a") {
		t.Fatalf("third message in window allowed")
	}
	if !rl.Allow("b") {
		t.Fatalf("limit leaked across connections")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("a") {
		t.Fatalf("message after window rejected")
	}

	rl.Forget("a")
	if len(rl.history) != 1 {
		t.Fatalf("history size=%d, want 1", len(rl.history))
	}
}

func TestNilRateLimiterAllows(t *testing.T) {
	rl := NewMessageRateLimiter(0, time.Second)
	if rl != nil {
		t.Fatalf("zero limit built a limiter")
	}
	if !rl.Allow("x") {
		t.Fatalf("nil limiter rejected")
	}
	rl.Forget("x")
}
