package debug

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/logging"
)

type runResult struct {
	err error
}

func runClient(ctx context.Context, c *StreamClient) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: c.Run(ctx)}
	}()
	return done
}

func waitRun(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case r := <-done:
		return r.err
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

func TestStreamClient_ReceivesSnapshots(t *testing.T) {
	s, url := startTestStream(t, config.DefaultConfig().Debug)
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws"

	c := NewStreamClient(wsURL, WithClientLogger(logging.Discard()))
	done := runClient(context.Background(), c)
	waitForViewers(t, s, 1)

	d, _ := newSnapshotDetector(t)
	if err := s.Publish(TakeSnapshot(9, d)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case snap := <-c.Snapshots():
		if snap.Tick != 9 || len(snap.Colliders) != 7 {
			t.Errorf("unexpected snapshot tick=%d colliders=%d", snap.Tick, len(snap.Colliders))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
	if c.Received() != 1 {
		t.Errorf("Received() = %d, want 1", c.Received())
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := waitRun(t, done); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Run() error = %v, want ErrClientClosed", err)
	}
	if _, ok := <-c.Snapshots(); ok {
		t.Error("Snapshots() should be closed after Run returns")
	}
}

func TestStreamClient_KeepsLatestSnapshot(t *testing.T) {
	c := NewStreamClient("ws://unused", WithClientLogger(logging.Discard()))
	c.deliver(Snapshot{Tick: 1})
	c.deliver(Snapshot{Tick: 2})

	snap := <-c.Snapshots()
	if snap.Tick != 2 {
		t.Errorf("Tick = %d, want the latest snapshot", snap.Tick)
	}
	if c.Received() != 2 {
		t.Errorf("Received() = %d, want 2", c.Received())
	}
}

func TestStreamClient_GivesUp(t *testing.T) {
	srv := httptest.NewServer(nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	srv.Close()

	c := NewStreamClient(wsURL,
		WithClientLogger(logging.Discard()),
		WithReconnect(10*time.Millisecond, 2),
	)
	err := waitRun(t, runClient(context.Background(), c))
	if err == nil || !strings.Contains(err.Error(), "giving up after 3 attempts") {
		t.Errorf("Run() error = %v, want give-up error", err)
	}
}

func TestStreamClient_ContextCancel(t *testing.T) {
	s, url := startTestStream(t, config.DefaultConfig().Debug)
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws"

	ctx, cancel := context.WithCancel(context.Background())
	c := NewStreamClient(wsURL, WithClientLogger(logging.Discard()))
	done := runClient(ctx, c)
	waitForViewers(t, s, 1)

	cancel()
	if err := waitRun(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestStreamClient_CloseBeforeRun(t *testing.T) {
	c := NewStreamClient("ws://127.0.0.1:1/ws", WithClientLogger(logging.Discard()))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := waitRun(t, runClient(context.Background(), c)); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Run() error = %v, want ErrClientClosed", err)
	}
}
