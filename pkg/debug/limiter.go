package debug

import (
	"net"
	"sync"
	"time"
)

// connectLimiter is a token bucket per remote host. It bounds how fast one
// host may open viewer connections; it does not limit concurrent viewers.
type connectLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hosts     map[string]*bucket
	lastPrune time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// newConnectLimiter allows max connects per window per host. A max of zero
// or less returns nil, which allows everything.
func newConnectLimiter(max int, window time.Duration) *connectLimiter {
	if max <= 0 {
		return nil
	}
	return &connectLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		hosts:  make(map[string]*bucket),
	}
}

// Allow spends one token for the host of remoteAddr.
func (l *connectLimiter) Allow(remoteAddr string) bool {
	if l == nil {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	b, ok := l.hosts[host]
	if !ok {
		b = &bucket{tokens: l.max, lastRefill: now}
		l.hosts[host] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 && b.tokens < l.max {
		refill := int(float64(l.max) * float64(elapsed) / float64(l.window))
		if refill > 0 {
			b.tokens = min(l.max, b.tokens+refill)
			b.lastRefill = now
		}
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// prune drops hosts idle for two windows, at most once per window.
func (l *connectLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	cutoff := now.Add(-2 * l.window)
	for host, b := range l.hosts {
		if b.lastRefill.Before(cutoff) {
			delete(l.hosts, host)
		}
	}
}

// Hosts returns how many hosts are tracked
func (l *connectLimiter) Hosts() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hosts)
}
