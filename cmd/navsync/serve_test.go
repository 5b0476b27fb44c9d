package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/navsync/internal/config"
	"github.com/vango-dev/navsync/pkg/location"
	"github.com/vango-dev/navsync/pkg/protocol"
	"github.com/vango-dev/navsync/pkg/transport"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	s := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.transport.Close()
		srv.Close()
	})
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, config.New())

	code, body := get(t, srv.URL+config.DefaultHealthPath)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var got struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("body %q: %v", body, err)
	}
	if got.Status != "ok" || got.Sessions != 0 {
		t.Errorf("health = %+v", got)
	}
}

func TestRedirectOverWebSocket(t *testing.T) {
	cfg := config.New()
	cfg.Redirects = map[string]string{"/old": "/new?from=old"}
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.Server.WSPath
	client, err := transport.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer client.Close()

	report := func(seq uint64, path string) {
		t.Helper()
		r := protocol.Report{Seq: seq, Cause: protocol.CauseInitial, Location: location.Location{Pathname: path}}
		if err := client.Report(r); err != nil {
			t.Fatalf("Report(%s) error: %v", path, err)
		}
	}

	report(1, "/stay")
	report(2, "/old")

	select {
	case cmd := <-client.Commands():
		if cmd.To != "/new?from=old" || !cmd.Replace {
			t.Errorf("command = %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no redirect command")
	}

	// Both reports were handled, so the counter must show up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, body := get(t, srv.URL+cfg.Server.MetricsPath)
		if strings.Contains(body, `navsync_reports_total{cause="initial"} 2`) &&
			strings.Contains(body, `navsync_commands_sent_total{op="replace"} 1`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics missing report counters:\n%s", body)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMetricsSubsystemAndBuckets(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Subsystem = "edge"
	cfg.Metrics.Buckets = []float64{0.5, 2}
	cfg.Metrics.Labels = map[string]string{"region": "eu"}
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.Server.WSPath
	client, err := transport.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer client.Close()

	r := protocol.Report{Seq: 1, Cause: protocol.CauseInitial, Location: location.Location{Pathname: "/"}}
	if err := client.Report(r); err != nil {
		t.Fatalf("Report() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var body string
	for {
		_, body = get(t, srv.URL+cfg.Server.MetricsPath)
		if strings.Contains(body, `navsync_edge_reports_total{cause="initial",region="eu"} 1`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics missing subsystem counter:\n%s", body)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(body, `navsync_edge_report_duration_seconds_bucket{region="eu",le="0.5"}`) ||
		!strings.Contains(body, `navsync_edge_report_duration_seconds_bucket{region="eu",le="2"}`) {
		t.Errorf("configured buckets not exported:\n%s", body)
	}
	if strings.Contains(body, `le="0.005"`) {
		t.Errorf("default buckets still exported:\n%s", body)
	}
}

// syncBuffer is a bytes.Buffer safe for the server's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSessionEndLogsLastLocation(t *testing.T) {
	logs := &syncBuffer{}
	cfg := config.New()
	s := newServer(cfg, slog.New(slog.NewTextHandler(logs, nil)))
	srv := httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.transport.Close()
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.Server.WSPath
	client, err := transport.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	for seq, path := range []string{"/a", "/b"} {
		r := protocol.Report{Seq: uint64(seq + 1), Cause: protocol.CausePush, Location: location.Location{Pathname: path}}
		if err := client.Report(r); err != nil {
			t.Fatalf("Report() error: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(logs.String(), "/b") {
		if time.Now().After(deadline) {
			t.Fatalf("reports not logged:\n%s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	client.Close()

	for {
		out := logs.String()
		if strings.Contains(out, `msg="session left"`) {
			if !strings.Contains(out, "last_seq=2") || !strings.Contains(out, "location=/b") {
				t.Errorf("session left line missing last_seq or location:\n%s", out)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no session left line:\n%s", out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApplyAddr(t *testing.T) {
	cfg := config.New()
	if err := applyAddr(cfg, "0.0.0.0:9000"); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if err := applyAddr(cfg, "nope"); err == nil {
		t.Error("applyAddr(nope) should fail")
	}
	if err := applyAddr(cfg, "host:port"); err == nil {
		t.Error("applyAddr(host:port) should fail")
	}
}
