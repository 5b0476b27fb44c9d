// Package metrics exposes Prometheus collectors for location reports,
// navigations and transport sessions.
//
//	c := metrics.New(metrics.WithNamespace("myapp"))
//	srv := transport.NewServer(handler, transport.WithMetrics(c))
//	http.Handle("/metrics", promhttp.Handler())
//
// Metrics collected (namespace "navsync" by default):
//   - reports_total: location reports received, by cause
//   - report_errors_total: reports that failed, by error type
//   - report_duration_seconds: time spent in the report handler
//   - navigations_total: commander calls, by op and result
//   - commands_sent_total: server navigation commands, by op
//   - active_sessions: connected transport sessions
package metrics
