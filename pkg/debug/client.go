package debug

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-collide/pkg/logging"
)

// ErrClientClosed is returned by Run once Close has been called.
var ErrClientClosed = errors.New("debug stream client closed")

// StreamClient follows a StreamServer and delivers decoded snapshots.
// Only the latest snapshot is kept when the consumer falls behind.
type StreamClient struct {
	url    string
	logger *logging.Logger
	dialer *websocket.Dialer

	snapshots chan Snapshot

	reconnectDelay       time.Duration
	maxReconnectAttempts int

	mu           sync.Mutex
	conn         *websocket.Conn
	closed       bool
	received     uint64
	decodeErrors uint64
}

// ClientOption configures a StreamClient.
type ClientOption func(*StreamClient)

// WithClientLogger sets the logger.
func WithClientLogger(logger *logging.Logger) ClientOption {
	return func(c *StreamClient) {
		c.logger = logger
	}
}

// WithReconnect sets the delay between attempts and how many consecutive
// failed attempts Run tolerates. Zero attempts disables reconnection.
func WithReconnect(delay time.Duration, attempts int) ClientOption {
	return func(c *StreamClient) {
		c.reconnectDelay = delay
		c.maxReconnectAttempts = attempts
	}
}

// NewStreamClient creates a client for the websocket endpoint at url,
// e.g. "ws://localhost:8090/ws".
func NewStreamClient(url string, opts ...ClientOption) *StreamClient {
	c := &StreamClient{
		url:                  url,
		dialer:               websocket.DefaultDialer,
		snapshots:            make(chan Snapshot, 1),
		reconnectDelay:       3 * time.Second,
		maxReconnectAttempts: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger()
	}
	return c
}

// Snapshots delivers decoded frames. The channel is closed when Run returns.
func (c *StreamClient) Snapshots() <-chan Snapshot {
	return c.snapshots
}

// Run connects and reads until ctx is cancelled, Close is called, or the
// reconnect attempts are exhausted.
func (c *StreamClient) Run(ctx context.Context) error {
	defer close(c.snapshots)

	failures := 0
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.isClosed() {
			return ErrClientClosed
		}

		var connected *sessionError
		if errors.As(err, &connected) && connected.received {
			failures = 0
		}
		failures++
		if failures > c.maxReconnectAttempts {
			return fmt.Errorf("debug stream %s: giving up after %d attempts: %w", c.url, failures, err)
		}

		c.logger.Warn(ctx, "debug stream lost, reconnecting",
			"url", c.url,
			"attempt", failures,
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

// sessionError records whether a failed session had delivered any frames.
type sessionError struct {
	received bool
	err      error
}

func (e *sessionError) Error() string { return e.err.Error() }

func (e *sessionError) Unwrap() error { return e.err }

// session runs one connection until it fails.
func (c *StreamClient) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to debug stream: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	c.logger.Info(ctx, "connected to debug stream", "url", c.url)

	received := false
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return &sessionError{received: received, err: err}
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		snap, err := Decode(data)
		if err != nil {
			c.mu.Lock()
			c.decodeErrors++
			c.mu.Unlock()
			c.logger.Warn(ctx, "dropping undecodable snapshot", "error", err.Error())
			continue
		}
		received = true
		c.deliver(snap)
	}
}

// deliver replaces any undelivered snapshot with snap.
func (c *StreamClient) deliver(snap Snapshot) {
	c.mu.Lock()
	c.received++
	c.mu.Unlock()

	for {
		select {
		case c.snapshots <- snap:
			return
		default:
		}
		select {
		case <-c.snapshots:
		default:
		}
	}
}

// Received returns the number of snapshots decoded so far.
func (c *StreamClient) Received() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received
}

// DecodeErrors returns the number of frames that failed to decode.
func (c *StreamClient) DecodeErrors() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodeErrors
}

func (c *StreamClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops Run and closes the current connection.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}
