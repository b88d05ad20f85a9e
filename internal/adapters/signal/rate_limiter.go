package signal

import (
	"sync"
	"time"
)

// MessageRateLimiter caps inbound socket messages per connection over a
// sliding window. A nil limiter allows everything.
type MessageRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewMessageRateLimiter(limit int, interval time.Duration) *MessageRateLimiter {
	if limit <= 0 || interval <= 0 {
		return nil
	}
	return &MessageRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *MessageRateLimiter) Allow(connID string) bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[connID]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[connID] = fresh
		return false
	}
	rl.history[connID] = append(fresh, now)
	return true
}

func (rl *MessageRateLimiter) Forget(connID string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.history, connID)
	rl.mu.Unlock()
}
