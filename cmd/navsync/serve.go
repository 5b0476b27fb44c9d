package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/navsync/internal/config"
	"github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/metrics"
	"github.com/vango-dev/navsync/pkg/protocol"
	"github.com/vango-dev/navsync/pkg/transport"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the report server",
		Long: `Run the WebSocket report server.

Clients connect to the WebSocket path and report every location change.
Reports for a pathname listed under "redirects" in navsync.json are
answered with a replace navigation to the configured target.

Examples:
  navsync serve
  navsync serve --config ./deploy/navsync.json
  navsync serve --addr 0.0.0.0:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				if err := applyAddr(cfg, addr); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(os.Stderr, cfg))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to navsync.json (default: ./navsync.json if present)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address host:port (overrides config)")

	return cmd
}

// loadConfig loads path, or ./navsync.json when path is empty and the
// file exists, or the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

func applyAddr(cfg *config.Config, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).WithDetailf("--addr %q", addr).Wrap(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).WithDetailf("--addr port %q", portStr).Wrap(err)
	}
	cfg.Server.Host = host
	cfg.Server.Port = port
	return nil
}

// server wires the transport, metrics and HTTP routes for one config.
type server struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	transport *transport.Server
}

func newServer(cfg *config.Config, logger *slog.Logger) *server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricOpts := []metrics.Option{
		metrics.WithRegistry(reg),
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
	}
	if len(cfg.Metrics.Labels) > 0 {
		metricOpts = append(metricOpts, metrics.WithConstLabels(prometheus.Labels(cfg.Metrics.Labels)))
	}
	if len(cfg.Metrics.Buckets) > 0 {
		metricOpts = append(metricOpts, metrics.WithBuckets(cfg.Metrics.Buckets))
	}
	collector := metrics.New(metricOpts...)

	opts := []transport.Option{
		transport.WithLogger(logger.With("component", "transport")),
		transport.WithMetrics(collector),
		transport.WithTracerName(cfg.Tracing.TracerName),
		transport.WithMaxMessageSize(cfg.Server.MaxMessageSize),
		transport.WithWriteTimeout(cfg.WriteTimeout()),
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		opts = append(opts, transport.WithCheckOrigin(func(r *http.Request) bool {
			return cfg.CheckOrigin(r.Header.Get("Origin"))
		}))
	}

	s := &server{cfg: cfg, logger: logger, registry: reg}
	opts = append(opts, transport.WithSessionHooks(nil, s.sessionEnded))
	s.transport = transport.NewServer(transport.HandlerFunc(s.handleReport), opts...)
	return s
}

// sessionEnded logs where the client was when it went away.
func (s *server) sessionEnded(sess *transport.Session) {
	loc, ok := sess.Location()
	if !ok {
		s.logger.Info("session left without reporting", "session_id", sess.ID)
		return
	}
	s.logger.Info("session left",
		"session_id", sess.ID,
		"last_seq", sess.LastSeq(),
		"location", loc.String(),
	)
}

// routes returns the HTTP handler for every configured endpoint.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(s.cfg.Server.HealthPath, s.handleHealth)
	r.Handle(s.cfg.Server.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle(s.cfg.Server.WSPath, s.transport)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.transport.SessionCount(),
	})
}

// handleReport logs every report and redirects configured pathnames.
func (s *server) handleReport(ctx context.Context, sess *transport.Session, r protocol.Report) error {
	s.logger.Info("location",
		"session_id", sess.ID,
		"seq", r.Seq,
		"cause", r.Cause.String(),
		"location", r.Location.String(),
	)
	to, ok := s.cfg.Redirects[r.Location.Pathname]
	if !ok {
		return nil
	}
	s.logger.Info("redirecting", "session_id", sess.ID, "from", r.Location.Pathname, "to", to)
	return sess.Navigate(to, true)
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s := newServer(cfg, logger)
	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", httpServer.Addr,
			"ws", cfg.Server.WSPath,
			"metrics", cfg.Server.MetricsPath,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	s.transport.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
