package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/navsync/pkg/metrics"
	"github.com/vango-dev/navsync/pkg/protocol"
)

// Default tracer name for report spans.
const defaultTracerName = "navsync"

// Handler processes location reports from a session.
type Handler interface {
	HandleReport(ctx context.Context, s *Session, r protocol.Report) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, s *Session, r protocol.Report) error

// HandleReport calls f(ctx, s, r).
func (f HandlerFunc) HandleReport(ctx context.Context, s *Session, r protocol.Report) error {
	return f(ctx, s, r)
}

// Config configures a Server.
type Config struct {
	// ReadBufferSize and WriteBufferSize size the upgrader buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// MaxMessageSize is the read limit per message in bytes.
	// Default: protocol.FrameHeaderSize + protocol.MaxPayloadSize
	MaxMessageSize int64

	// WriteTimeout bounds each frame write.
	// Default: 10s
	WriteTimeout time.Duration

	// CheckOrigin is passed to the upgrader. Nil uses gorilla's
	// same-origin check.
	CheckOrigin func(r *http.Request) bool

	// TracerName names the tracer used for report spans.
	// Default: "navsync"
	TracerName string

	// Metrics records sessions, reports and commands. Nil disables.
	Metrics *metrics.Collector

	// Logger is the server logger.
	Logger *slog.Logger

	// OnSessionStart and OnSessionEnd are called as connections come
	// and go.
	OnSessionStart func(*Session)
	OnSessionEnd   func(*Session)
}

// Option configures a Server.
type Option func(*Config)

// WithMaxMessageSize sets the per-message read limit.
func WithMaxMessageSize(n int64) Option {
	return func(c *Config) {
		c.MaxMessageSize = n
	}
}

// WithWriteTimeout sets the frame write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithCheckOrigin sets the upgrader origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) {
		c.CheckOrigin = fn
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithSessionHooks sets callbacks for session start and end.
func WithSessionHooks(start, end func(*Session)) Option {
	return func(c *Config) {
		c.OnSessionStart = start
		c.OnSessionEnd = end
	}
}

func defaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  protocol.FrameHeaderSize + protocol.MaxPayloadSize,
		WriteTimeout:    10 * time.Second,
		TracerName:      defaultTracerName,
	}
}

// Server accepts WebSocket connections and dispatches their reports.
type Server struct {
	handler  Handler
	config   Config
	upgrader websocket.Upgrader
	tracer   trace.Tracer
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewServer creates a Server that passes reports to h.
func NewServer(h Handler, opts ...Option) *Server {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "transport")
	}

	return &Server{
		handler: h,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		tracer:   otel.Tracer(config.TracerName),
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the request and serves the session until the
// connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	sess := newSession(conn, s, cancel)

	if !s.register(sess) {
		sess.Close()
		cancel()
		return
	}
	s.config.Metrics.SessionOpened()
	s.logger.Info("session started", "session_id", sess.ID, "remote", r.RemoteAddr)
	if s.config.OnSessionStart != nil {
		s.config.OnSessionStart(sess)
	}

	defer func() {
		sess.Close()
		s.unregister(sess)
		s.config.Metrics.SessionClosed()
		if s.config.OnSessionEnd != nil {
			s.config.OnSessionEnd(sess)
		}
		s.logger.Info("session ended", "session_id", sess.ID)
	}()

	sess.readLoop(ctx)
}

// Session returns the connected session with id.
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes every session and refuses new ones.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	return nil
}

func (s *Server) register(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.ID] = sess
	return true
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID)
}
