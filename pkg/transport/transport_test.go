package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/navsync/pkg/bridge"
	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/location"
	"github.com/vango-dev/navsync/pkg/metrics"
	"github.com/vango-dev/navsync/pkg/protocol"
)

const testTimeout = 2 * time.Second

var _ bridge.Reporter = (*Client)(nil)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type harness struct {
	server   *Server
	http     *httptest.Server
	reports  chan protocol.Report
	sessions chan *Session
	registry *prometheus.Registry
}

func newHarness(t *testing.T, fn HandlerFunc) *harness {
	t.Helper()
	h := &harness{
		reports:  make(chan protocol.Report, 16),
		sessions: make(chan *Session, 4),
		registry: prometheus.NewRegistry(),
	}
	handler := HandlerFunc(func(ctx context.Context, s *Session, r protocol.Report) error {
		h.reports <- r
		if fn != nil {
			return fn(ctx, s, r)
		}
		return nil
	})
	h.server = NewServer(handler,
		WithMetrics(metrics.New(metrics.WithRegistry(h.registry))),
		WithSessionHooks(func(s *Session) { h.sessions <- s }, nil),
	)
	h.http = httptest.NewServer(h.server)
	t.Cleanup(func() {
		h.server.Close()
		h.http.Close()
	})
	return h
}

func (h *harness) dial(t *testing.T, opts ...DialOption) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	c, err := Dial(ctx, wsURL(h.http), opts...)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func (h *harness) session(t *testing.T) *Session {
	t.Helper()
	select {
	case s := <-h.sessions:
		return s
	case <-time.After(testTimeout):
		t.Fatal("no session started")
		return nil
	}
}

func (h *harness) report(t *testing.T) protocol.Report {
	t.Helper()
	select {
	case r := <-h.reports:
		return r
	case <-time.After(testTimeout):
		t.Fatal("no report received")
		return protocol.Report{}
	}
}

func rawDial(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(h.http), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readErrorFrame(t *testing.T, conn *websocket.Conn) protocol.ErrorMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(testTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame() error: %v", err)
	}
	if frame.Type != protocol.FrameError {
		t.Fatalf("frame type = %s, want Error", frame.Type)
	}
	em, err := protocol.DecodeErrorMessage(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage() error: %v", err)
	}
	return em
}

func TestReportAndNavigate(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, s *Session, r protocol.Report) error {
		if r.Location.Pathname == "/old" {
			return s.Navigate("/new?x=1", true)
		}
		return nil
	})
	c := h.dial(t)
	sess := h.session(t)

	if _, ok := sess.Location(); ok {
		t.Error("Location() reported before any report")
	}

	loc := location.Location{Pathname: "/old", Search: "?a=b"}
	if err := c.Report(protocol.Report{Seq: 1, Cause: protocol.CauseInitial, Location: loc}); err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	got := h.report(t)
	if got.Location != loc || got.Cause != protocol.CauseInitial || got.Seq != 1 {
		t.Errorf("report = %+v", got)
	}

	select {
	case cmd := <-c.Commands():
		if cmd.To != "/new?x=1" || !cmd.Replace || cmd.Seq != 1 {
			t.Errorf("command = %+v", cmd)
		}
	case <-time.After(testTimeout):
		t.Fatal("no command received")
	}

	if l, ok := sess.Location(); !ok || l != loc {
		t.Errorf("Location() = %v, %v; want %v, true", l, ok, loc)
	}
	if sess.LastSeq() != 1 {
		t.Errorf("LastSeq() = %d, want 1", sess.LastSeq())
	}
	if _, ok := h.server.Session(sess.ID); !ok {
		t.Error("Session(id) not found")
	}
}

func TestReportsArriveInOrder(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t)

	paths := []string{"/a", "/b", "/c", "/d"}
	for i, p := range paths {
		r := protocol.Report{Seq: uint64(i + 1), Cause: protocol.CausePush, Location: location.Location{Pathname: p}}
		if err := c.Report(r); err != nil {
			t.Fatalf("Report(%s) error: %v", p, err)
		}
	}
	for i, p := range paths {
		r := h.report(t)
		if r.Location.Pathname != p || r.Seq != uint64(i+1) {
			t.Errorf("report %d = %+v, want %s", i, r, p)
		}
	}
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	h := newHarness(t, nil)
	conn := rawDial(t, h)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xFF, 0x00}); err != nil {
		t.Fatal(err)
	}
	if em := readErrorFrame(t, conn); em.Code != protocol.ErrInvalidFrame || em.Fatal {
		t.Errorf("error = %+v, want non-fatal InvalidFrame", em)
	}

	data, err := protocol.ReportFrame(protocol.Report{
		Seq: 1, Cause: protocol.CausePopState, Location: location.Location{Pathname: "/still-open"},
	}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatal(err)
	}
	if r := h.report(t); r.Location.Pathname != "/still-open" {
		t.Errorf("report pathname = %q", r.Location.Pathname)
	}
}

func TestCommandFromClientRejected(t *testing.T) {
	h := newHarness(t, nil)
	conn := rawDial(t, h)

	data, err := protocol.CommandFrame(protocol.Command{Seq: 1, To: "/x"}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatal(err)
	}
	if em := readErrorFrame(t, conn); em.Code != protocol.ErrInvalidKind {
		t.Errorf("error code = %s, want InvalidKind", em.Code)
	}
}

func TestHandlerErrorSendsRejected(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, s *Session, r protocol.Report) error {
		return errors.New("forbidden path")
	})
	errs := make(chan protocol.ErrorMessage, 1)
	c := h.dial(t, WithErrorHandler(func(em protocol.ErrorMessage) { errs <- em }))

	if err := c.Report(protocol.Report{Seq: 1, Cause: protocol.CauseLink, Location: location.Location{Pathname: "/admin"}}); err != nil {
		t.Fatal(err)
	}

	select {
	case em := <-errs:
		if em.Code != protocol.ErrRejected || !strings.Contains(em.Message, "forbidden path") {
			t.Errorf("error = %+v", em)
		}
	case <-time.After(testTimeout):
		t.Fatal("no error frame received")
	}

	families, err := h.registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var reports, rejected float64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "navsync_reports_total":
				reports += m.GetCounter().GetValue()
			case "navsync_report_errors_total":
				rejected += m.GetCounter().GetValue()
			}
		}
	}
	if reports != 1 || rejected != 1 {
		t.Errorf("reports_total = %v, report_errors_total = %v; want 1, 1", reports, rejected)
	}
}

func TestNavigateEmptyTarget(t *testing.T) {
	h := newHarness(t, nil)
	h.dial(t)
	sess := h.session(t)

	if err := sess.Navigate("  ", false); !errors.Is(err, location.ErrEmptyTarget) {
		t.Errorf("Navigate(blank) error = %v, want ErrEmptyTarget", err)
	}
}

func TestServerCloseEndsClient(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t)
	sess := h.session(t)

	h.server.Close()

	select {
	case _, ok := <-c.Commands():
		if ok {
			t.Error("unexpected command")
		}
	case <-time.After(testTimeout):
		t.Fatal("Commands() not closed after server close")
	}
	if err := sess.Navigate("/late", false); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Navigate() after close error = %v, want ErrSessionClosed", err)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Report(protocol.Report{Seq: 1, Cause: protocol.CausePush, Location: location.Location{Pathname: "/"}}); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Report() after Close error = %v, want ErrClientClosed", err)
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v after clean close", c.Err())
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, s *Session, r protocol.Report) error {
		if r.Location.Pathname == "/old" {
			return s.Navigate("/new?via=server", true)
		}
		return nil
	})
	c := h.dial(t)

	fake := browser.NewFake("http://app.test/old")
	m := bridge.New(fake, bridge.Callbacks{}, bridge.WithReporter(c))
	loop := bridge.NewLoop(0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	go bridge.Forward(ctx, c.Commands(), loop, m)

	if err := loop.Send(ctx, m.Activate); err != nil {
		t.Fatal(err)
	}

	first := h.report(t)
	if first.Cause != protocol.CauseInitial || first.Location.Pathname != "/old" {
		t.Errorf("first report = %+v", first)
	}
	second := h.report(t)
	want := location.Location{Pathname: "/new", Search: "?via=server"}
	if second.Cause != protocol.CauseReplace || second.Location != want || second.Seq != 2 {
		t.Errorf("second report = %+v, want replace %v", second, want)
	}

	entries := make(chan int, 1)
	if err := loop.Send(ctx, func() error {
		entries <- fake.Len()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	select {
	case n := <-entries:
		if n != 1 {
			t.Errorf("history length = %d, want 1 after a replace", n)
		}
	case <-time.After(testTimeout):
		t.Fatal("loop did not run")
	}
}
