package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/navsync/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.WSPath != DefaultWSPath {
		t.Errorf("Server.WSPath = %q, want %q", cfg.Server.WSPath, DefaultWSPath)
	}
	if cfg.Metrics.Namespace != DefaultName {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Load(missing) error = %v, want C001", err)
	}
	if Exists(tmpDir) {
		t.Error("Exists() = true before file written")
	}

	configJSON := `{
  "server": {
    "port": 9090,
    "wsPath": "/nav",
    "writeTimeout": "3s",
    "allowedOrigins": ["http://app.test"]
  },
  "log": {
    "level": "debug",
    "format": "json"
  },
  "metrics": {
    "subsystem": "edge",
    "buckets": [0.01, 0.1, 1],
    "labels": {"region": "eu"}
  },
  "redirects": {
    "/old": "/new"
  }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !Exists(tmpDir) {
		t.Error("Exists() = false")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.WSPath != "/nav" {
		t.Errorf("Server.WSPath = %q, want /nav", cfg.Server.WSPath)
	}
	if cfg.Server.MetricsPath != DefaultMetricsPath {
		t.Errorf("Server.MetricsPath = %q, want default", cfg.Server.MetricsPath)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if cfg.WriteTimeout() != 3*time.Second {
		t.Errorf("WriteTimeout() = %v, want 3s", cfg.WriteTimeout())
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.Redirects["/old"] != "/new" {
		t.Errorf("Redirects = %v", cfg.Redirects)
	}
	if cfg.Metrics.Namespace != DefaultName || cfg.Metrics.Subsystem != "edge" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Metrics.Labels["region"] != "eu" {
		t.Errorf("Metrics.Labels = %v", cfg.Metrics.Labels)
	}
	if len(cfg.Metrics.Buckets) != 3 || cfg.Metrics.Buckets[2] != 1 {
		t.Errorf("Metrics.Buckets = %v", cfg.Metrics.Buckets)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if !cfg.CheckOrigin("http://app.test") || cfg.CheckOrigin("http://evil.test") {
		t.Error("CheckOrigin() mismatch")
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if cfg.Address() != "localhost:9090" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("LoadFile() error = %v, want C001", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := New()
	cfg.Server.Port = 7000
	cfg.Redirects = map[string]string{"/a": "/b"}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if loaded.Server.Port != 7000 || loaded.Redirects["/a"] != "/b" {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := New().Save(); err == nil {
		t.Error("Save() without path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port range", func(c *Config) { c.Server.Port = 70000 }},
		{"ws path", func(c *Config) { c.Server.WSPath = "ws" }},
		{"duplicate path", func(c *Config) { c.Server.MetricsPath = c.Server.WSPath }},
		{"message size", func(c *Config) { c.Server.MaxMessageSize = 2 }},
		{"write timeout", func(c *Config) { c.Server.WriteTimeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Server.WriteTimeout = "-1s" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero bucket", func(c *Config) { c.Metrics.Buckets = []float64{0, 1} }},
		{"label name", func(c *Config) { c.Metrics.Labels = map[string]string{"bad-name": "x"} }},
		{"reserved label", func(c *Config) { c.Metrics.Labels = map[string]string{"cause": "x"} }},
		{"internal label", func(c *Config) { c.Metrics.Labels = map[string]string{"__name": "x"} }},
		{"unsorted buckets", func(c *Config) { c.Metrics.Buckets = []float64{0.5, 0.1} }},
		{"redirect source", func(c *Config) { c.Redirects = map[string]string{"old": "/new"} }},
		{"redirect target", func(c *Config) { c.Redirects = map[string]string{"/old": " "} }},
		{"redirect loop", func(c *Config) { c.Redirects = map[string]string{"/old": "/old"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, errors.CodeInvalidConfig) {
				t.Errorf("Validate() = %v, want C001", err)
			}
		})
	}
}
