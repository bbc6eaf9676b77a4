package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/health"
	"github.com/opd-ai/go-collide/pkg/logging"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufSize    = 16
)

// ErrServerClosed is returned by Publish and Start after Stop.
var ErrServerClosed = errors.New("debug stream server closed")

type viewer struct {
	name    string
	conn    *websocket.Conn
	breaker *gobreaker.CircuitBreaker

	// mu guards send against a concurrent close.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// StreamServer fans snapshots out to websocket viewers. Publish never
// blocks the caller: frames for a viewer that has fallen behind are dropped.
type StreamServer struct {
	cfg      config.DebugConfig
	logger   *logging.Logger
	checker  *health.HealthChecker
	upgrader websocket.Upgrader
	limiter  *connectLimiter

	mu       sync.Mutex
	viewers  map[*viewer]struct{}
	nextID   uint64
	closed   bool
	listener net.Listener
	server   *http.Server

	published atomic.Uint64
	dropped   atomic.Uint64
}

// StreamOption configures a StreamServer.
type StreamOption func(*StreamServer)

// WithStreamLogger sets the logger.
func WithStreamLogger(logger *logging.Logger) StreamOption {
	return func(s *StreamServer) {
		s.logger = logger
	}
}

// WithHealthChecker serves checker's probes next to the stream.
func WithHealthChecker(checker *health.HealthChecker) StreamOption {
	return func(s *StreamServer) {
		s.checker = checker
	}
}

// NewStreamServer creates a stream server. Nothing listens until Start.
func NewStreamServer(cfg config.DebugConfig, opts ...StreamOption) *StreamServer {
	s := &StreamServer{
		cfg:     cfg,
		viewers: make(map[*viewer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = newConnectLimiter(cfg.MaxConnectsPerMinute, time.Minute)
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}
	if s.checker == nil {
		s.checker = health.NewHealthChecker()
	}
	return s
}

// Handler returns the HTTP routes: /ws for viewers, /health and /ready
// for probes.
func (s *StreamServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/health", s.checker.LivenessHandler)
	mux.HandleFunc("/ready", s.checker.ReadinessHandler)
	return mux
}

// Start listens on address and serves Handler in the background.
func (s *StreamServer) Start(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.listener != nil {
		return fmt.Errorf("debug stream already listening on %s", s.listener.Addr())
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start debug stream: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "Debug stream stopped serving", err)
		}
	}()

	s.logger.Info(context.Background(), "Debug stream started", "address", listener.Addr().String())
	return nil
}

// Addr returns the listening address, or "" when not listening.
func (s *StreamServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.closed {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop disconnects every viewer and shuts the listener down.
func (s *StreamServer) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	viewers := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.viewers = make(map[*viewer]struct{})
	server := s.server
	s.mu.Unlock()

	for _, v := range viewers {
		v.close()
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			s.logger.Warn(context.Background(), "Debug stream shutdown incomplete", "error", err.Error())
		}
	}
	s.logger.Info(context.Background(), "Debug stream stopped",
		"published", s.published.Load(),
		"dropped", s.dropped.Load())
}

// Publish encodes snap once and queues it for every viewer.
func (s *StreamServer) Publish(snap Snapshot) error {
	frame, err := snap.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	viewers := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.mu.Unlock()

	s.published.Add(1)
	for _, v := range viewers {
		if err := v.offer(frame); err != nil {
			s.dropped.Add(1)
			s.logger.Debug(context.Background(), "Snapshot dropped",
				"tick", snap.Tick,
				"error", err.Error())
		}
	}
	return nil
}

// ViewerCount returns the number of connected viewers
func (s *StreamServer) ViewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// Published returns how many snapshots were published
func (s *StreamServer) Published() uint64 {
	return s.published.Load()
}

// Dropped returns how many per-viewer frames were skipped
func (s *StreamServer) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *StreamServer) serveWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	full := len(s.viewers) >= s.cfg.MaxViewers
	closed := s.closed
	s.mu.Unlock()
	if closed || full {
		http.Error(w, "debug stream unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.Allow(r.RemoteAddr) {
		s.logger.Warn(r.Context(), "Viewer connect rate exceeded", "remote", r.RemoteAddr)
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "Viewer upgrade failed", "error", err.Error())
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.nextID++
	name := fmt.Sprintf("viewer-%d", s.nextID)
	v := &viewer{
		name:    name,
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
		breaker: newViewerBreaker(name, s.cfg, s.logger),
	}
	s.viewers[v] = struct{}{}
	s.mu.Unlock()

	s.logger.Info(r.Context(), "Viewer connected", "viewer", name, "remote", r.RemoteAddr)

	go s.writePump(v)
	go s.readPump(v)
}

func (s *StreamServer) removeViewer(v *viewer) {
	s.mu.Lock()
	_, present := s.viewers[v]
	delete(s.viewers, v)
	s.mu.Unlock()

	v.close()
	if present {
		s.logger.Info(context.Background(), "Viewer disconnected", "viewer", v.name)
	}
}

// readPump discards viewer input and notices disconnects.
func (s *StreamServer) readPump(v *viewer) {
	defer s.removeViewer(v)

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug(context.Background(), "Viewer read failed", "viewer", v.name, "error", err.Error())
			}
			return
		}
	}
}

func (s *StreamServer) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
		s.removeViewer(v)
	}()

	writeWait := time.Duration(s.cfg.WriteTimeoutMs) * time.Millisecond
	for {
		select {
		case frame, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.logger.Debug(context.Background(), "Viewer write failed", "viewer", v.name, "error", err.Error())
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close ends the write pump, which sends a close frame and closes the
// connection.
func (v *viewer) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.send)
	}
}
