package ratelimit

import (
	"sync"
	"time"
)

// visitor tracks the rate limit state for a single key.
type visitor struct {
	tokens    float64
	lastCheck time.Time
}

// TokenBucket is an in-process per-key token-bucket limiter.
type TokenBucket struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     float64 // tokens per second
	burst    int     // max tokens
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewTokenBucket creates a limiter with the given rate (requests/sec) and burst size.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	tb := &TokenBucket{
		visitors: make(map[string]*visitor),
		rate:     rps,
		burst:    burst,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Clean up stale entries every 5 minutes
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tb.cleanup()
			case <-tb.stop:
				return
			}
		}
	}()

	return tb
}

// Allow consumes one token for key.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	v, exists := tb.visitors[key]
	now := tb.now()

	if !exists {
		if tb.burst < 1 {
			return false
		}
		tb.visitors[key] = &visitor{
			tokens:    float64(tb.burst) - 1,
			lastCheck: now,
		}
		return true
	}

	// Add tokens based on elapsed time
	elapsed := now.Sub(v.lastCheck).Seconds()
	v.tokens += elapsed * tb.rate
	if v.tokens > float64(tb.burst) {
		v.tokens = float64(tb.burst)
	}
	v.lastCheck = now

	if v.tokens < 1 {
		return false
	}

	v.tokens--
	return true
}

// Close stops the background cleanup.
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() { close(tb.stop) })
	return nil
}

func (tb *TokenBucket) cleanup() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	cutoff := tb.now().Add(-10 * time.Minute)
	for key, v := range tb.visitors {
		if v.lastCheck.Before(cutoff) {
			delete(tb.visitors, key)
		}
	}
}
