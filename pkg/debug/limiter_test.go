package debug

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*connectLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	l := newConnectLimiter(max, window)
	l.now = clock.now
	return l, clock
}

func TestConnectLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1:5000") {
			t.Errorf("connect %d should be allowed", i+1)
		}
	}
	// Same host, different port.
	if l.Allow("10.0.0.1:5001") {
		t.Error("4th connect from the same host should be denied")
	}
	if !l.Allow("10.0.0.2:5000") {
		t.Error("a different host should be allowed")
	}
}

func TestConnectLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(2, 100*time.Millisecond)

	l.Allow("host")
	l.Allow("host")
	if l.Allow("host") {
		t.Fatal("connect should be denied once the bucket is empty")
	}

	clock.advance(50 * time.Millisecond)
	if !l.Allow("host") {
		t.Error("half a window should refill one token")
	}
	if l.Allow("host") {
		t.Error("the refilled token should be spent")
	}
}

func TestConnectLimiter_PrunesIdleHosts(t *testing.T) {
	l, clock := newTestLimiter(1, time.Second)

	l.Allow("a:1")
	l.Allow("b:1")
	if l.Hosts() != 2 {
		t.Fatalf("Hosts() = %d, want 2", l.Hosts())
	}

	clock.advance(3 * time.Second)
	l.Allow("c:1")
	if l.Hosts() != 1 {
		t.Errorf("Hosts() = %d after idle period, want 1", l.Hosts())
	}
}

func TestConnectLimiter_Disabled(t *testing.T) {
	l := newConnectLimiter(0, time.Minute)
	if l != nil {
		t.Fatal("a zero limit should disable the limiter")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow("host:1") {
			t.Fatal("a nil limiter should allow every connect")
		}
	}
	if l.Hosts() != 0 {
		t.Errorf("Hosts() = %d, want 0", l.Hosts())
	}
}
