package ratelimit

import (
	"sync"
	"time"
)

// staleAfter is how long an idle bucket survives before cleanup.
const staleAfter = 10 * time.Minute

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a per-key token bucket. Keys are typically client IPs.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	lastSweep time.Time
}

func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket), lastSweep: time.Now()}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > staleAfter {
		l.sweepLocked(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, b := range l.m {
		if now.Sub(b.last) > staleAfter {
			delete(l.m, key)
		}
	}
	l.lastSweep = now
}
