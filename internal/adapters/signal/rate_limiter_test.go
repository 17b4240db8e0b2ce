package signal

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, 10*time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{0, true},
		{time.Second, true},
		{time.Second, false},
		{7 * time.Second, false},
		{1500 * time.Millisecond, true},
	}
	for i, s := range steps {
		now = now.Add(s.advance)
		if got := rl.Allow("c1"); got != s.want {
			t.Errorf("step %d: Allow() = %v, want %v", i, got, s.want)
		}
	}
	if !rl.Allow("c2") {
		t.Error("Allow(c2) = false, limits must be per connection")
	}
}

func TestRateLimiterForgetAndDisabled(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Allow("c1")
	if rl.Allow("c1") {
		t.Fatal("Allow() = true past limit")
	}
	rl.Forget("c1")
	if !rl.Allow("c1") {
		t.Error("Allow() = false after Forget")
	}

	off := NewRateLimiter(0, time.Minute)
	for range 10 {
		if !off.Allow("c1") {
			t.Fatal("disabled limiter rejected")
		}
	}
	var nilLimiter *RateLimiter
	if !nilLimiter.Allow("c1") {
		t.Error("nil limiter rejected")
	}
}
