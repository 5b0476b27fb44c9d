package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nerrors "github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/location"
	"github.com/vango-dev/navsync/pkg/protocol"
)

// ErrSessionClosed is returned when writing to a closed session.
var ErrSessionClosed = errors.New("transport: session closed")

// Session is one connected client.
type Session struct {
	// ID is a random identifier assigned on connect.
	ID string

	conn   *websocket.Conn
	server *Server
	logger *slog.Logger
	cancel context.CancelFunc

	writeMu sync.Mutex
	seq     atomic.Uint64

	mu       sync.RWMutex
	location location.Location
	reported bool
	lastSeq  uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

func newSession(conn *websocket.Conn, srv *Server, cancel context.CancelFunc) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		conn:   conn,
		server: srv,
		logger: srv.logger.With("session_id", id),
		cancel: cancel,
	}
}

// Location returns the last location the client reported. The boolean
// is false until the first report arrives.
func (s *Session) Location() (location.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location, s.reported
}

// LastSeq returns the sequence number of the last accepted report.
func (s *Session) LastSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq
}

// Navigate asks the client to push (or replace with) to. The client
// resolves to against its own location.
func (s *Session) Navigate(to string, replace bool) error {
	if strings.TrimSpace(to) == "" {
		return location.ErrEmptyTarget
	}
	cmd := protocol.Command{Seq: s.seq.Add(1), To: to, Replace: replace}
	if err := s.writeFrame(protocol.CommandFrame(cmd)); err != nil {
		return fmt.Errorf("transport: navigate %q: %w", to, err)
	}
	s.server.config.Metrics.RecordCommand(replace)
	s.logger.Debug("navigation sent", "to", to, "replace", replace, "seq", cmd.Seq)
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		s.conn.Close()
		if s.cancel != nil {
			s.cancel()
		}
	})
}

func (s *Session) writeFrame(f *protocol.Frame) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	data, err := f.Encode()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *Session) sendError(code protocol.ErrorCode, msg string) {
	em := protocol.ErrorMessage{Code: code, Message: msg}
	if err := s.writeFrame(protocol.ErrorFrame(em)); err != nil {
		s.logger.Debug("error frame not sent", "error", err)
	}
}

// readLoop reads frames until the connection closes. Reports are
// handled in arrival order on this goroutine.
func (s *Session) readLoop(ctx context.Context) {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.malformed(err)
			continue
		}
		if frame.Type != protocol.FrameReport {
			ne := nerrors.New(nerrors.CodeUnexpectedType).
				WithDetailf("frame type %s", frame.Type)
			s.logger.Warn(ne.Message, ne.LogAttrs()...)
			s.server.config.Metrics.RecordReportError("kind")
			s.sendError(protocol.ErrInvalidKind, "expected report frame")
			continue
		}

		report, err := protocol.DecodeReport(frame.Payload)
		if err != nil {
			s.malformed(err)
			continue
		}
		s.handleReport(ctx, report)
	}
}

func (s *Session) malformed(err error) {
	ne := nerrors.FromError(err, nerrors.CodeMalformedFrame)
	s.logger.Warn(ne.Message, ne.LogAttrs()...)
	s.server.config.Metrics.RecordReportError("decode")
	s.sendError(protocol.ErrInvalidFrame, err.Error())
}

func (s *Session) handleReport(ctx context.Context, r protocol.Report) {
	start := time.Now()
	cause := r.Cause.String()

	ctx, span := s.server.tracer.Start(ctx, "navsync.report",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("navsync.session_id", s.ID),
			attribute.String("navsync.cause", cause),
			attribute.String("navsync.pathname", r.Location.Pathname),
			attribute.Int64("navsync.seq", int64(r.Seq)),
		),
	)
	defer span.End()

	s.mu.Lock()
	s.location = r.Location
	s.reported = true
	s.lastSeq = r.Seq
	s.mu.Unlock()

	s.logger.Debug("report received", "cause", cause, "location", r.Location.String(), "seq", r.Seq)

	err := s.server.handler.HandleReport(ctx, s, r)
	s.server.config.Metrics.RecordReport(cause, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.server.config.Metrics.RecordReportError("handler")
		s.logger.Warn("report rejected", "cause", cause, "location", r.Location.String(), "error", err)
		s.sendError(protocol.ErrRejected, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
