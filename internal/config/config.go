package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "navsync.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultWSPath is the default WebSocket endpoint.
	DefaultWSPath = "/ws"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultHealthPath is the default health endpoint.
	DefaultHealthPath = "/healthz"

	// DefaultWriteTimeout is the default frame write deadline.
	DefaultWriteTimeout = "10s"

	// DefaultName is the default tracer name and metrics namespace.
	DefaultName = "navsync"
)

// Config represents the complete navsync.json configuration.
type Config struct {
	// Server contains listener and endpoint configuration.
	Server ServerConfig `json:"server"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Redirects maps reported pathnames to the target the server
	// replaces them with.
	Redirects map[string]string `json:"redirects,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains server configuration.
type ServerConfig struct {
	// Host is the interface to bind.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// WSPath is the WebSocket endpoint.
	WSPath string `json:"wsPath,omitempty"`

	// MetricsPath is the Prometheus scrape endpoint.
	MetricsPath string `json:"metricsPath,omitempty"`

	// HealthPath is the liveness endpoint.
	HealthPath string `json:"healthPath,omitempty"`

	// MaxMessageSize is the per-message read limit in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// WriteTimeout is the frame write deadline (e.g. "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// AllowedOrigins lists origins accepted on the WebSocket endpoint.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// TracerName names the tracer for report spans.
	TracerName string `json:"tracerName,omitempty"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Subsystem is placed between the namespace and the metric name.
	Subsystem string `json:"subsystem,omitempty"`

	// Buckets overrides the report duration histogram buckets, in
	// seconds. Empty keeps the Prometheus defaults.
	Buckets []float64 `json:"buckets,omitempty"`

	// Labels are constant labels added to every metric.
	Labels map[string]string `json:"labels,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			WSPath:         DefaultWSPath,
			MetricsPath:    DefaultMetricsPath,
			HealthPath:     DefaultHealthPath,
			MaxMessageSize: protocol.FrameHeaderSize + protocol.MaxPayloadSize,
			WriteTimeout:   DefaultWriteTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			TracerName: DefaultName,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultName,
		},
	}
}

// Load loads navsync.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeInvalidConfig).
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Create the file or run without --config to use defaults").
				Wrap(err)
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Exists checks if a navsync.json exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// Save writes the configuration back to the path it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New(errors.CodeInvalidConfig).WithDetail("no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills zero values left by a partial file.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = d.Server.WSPath
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = d.Server.MetricsPath
	}
	if c.Server.HealthPath == "" {
		c.Server.HealthPath = d.Server.HealthPath
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = d.Server.MaxMessageSize
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.CodeInvalidConfig).WithDetailf(format, args...)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	paths := map[string]string{}
	for _, p := range []struct{ field, value string }{
		{"server.wsPath", c.Server.WSPath},
		{"server.metricsPath", c.Server.MetricsPath},
		{"server.healthPath", c.Server.HealthPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return invalid("%s must start with /, got %q", p.field, p.value)
		}
		if other, dup := paths[p.value]; dup {
			return invalid("%s and %s are both %q", other, p.field, p.value)
		}
		paths[p.value] = p.field
	}
	if c.Server.MaxMessageSize < protocol.FrameHeaderSize {
		return invalid("server.maxMessageSize must be at least %d, got %d",
			protocol.FrameHeaderSize, c.Server.MaxMessageSize)
	}
	if d, err := time.ParseDuration(c.Server.WriteTimeout); err != nil || d <= 0 {
		return invalid("server.writeTimeout must be a positive duration, got %q", c.Server.WriteTimeout)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	for i, b := range c.Metrics.Buckets {
		if b <= 0 {
			return invalid("metrics.buckets must be positive, got %v", b)
		}
		if i > 0 && b <= c.Metrics.Buckets[i-1] {
			return invalid("metrics.buckets must be increasing, got %v after %v", b, c.Metrics.Buckets[i-1])
		}
	}
	for name := range c.Metrics.Labels {
		if !labelName.MatchString(name) || strings.HasPrefix(name, "__") {
			return invalid("metrics.labels: %q is not a valid label name", name)
		}
		if reservedLabels[name] {
			return invalid("metrics.labels: %q is already used by navsync metrics", name)
		}
	}
	for from, to := range c.Redirects {
		if !strings.HasPrefix(from, "/") {
			return invalid("redirect source must be a pathname, got %q", from)
		}
		if strings.TrimSpace(to) == "" {
			return invalid("redirect target for %q is empty", from)
		}
		if to == from {
			return invalid("redirect %q points at itself", from)
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// WriteTimeout returns the parsed write timeout, or 10s when it does
// not parse.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// CheckOrigin reports whether origin is in AllowedOrigins.
func (c *Config) CheckOrigin(origin string) bool {
	for _, allowed := range c.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

var labelName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// reservedLabels are the variable labels of the navsync metrics.
var reservedLabels = map[string]bool{"cause": true, "type": true, "op": true, "result": true}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
