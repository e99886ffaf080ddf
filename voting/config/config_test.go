package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Live.SendBuffer != 256 || cfg.Live.WriteWait != 10*time.Second || cfg.Live.PongWait != 60*time.Second {
		t.Errorf("unexpected live defaults %+v", cfg.Live)
	}
	if cfg.Live.PingPeriod() != 54*time.Second {
		t.Errorf("expected ping period 54s, got %v", cfg.Live.PingPeriod())
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Store.Driver)
	}
	if cfg.Server.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Addr())
	}
}

func TestParse(t *testing.T) {
	t.Setenv("VOTING_TEST_DSN", "file:test.db")

	cfg, err := Parse([]byte(`
server:
  host: 127.0.0.1
  port: 9090
live:
  send_buffer: 16
  pong_wait: 30s
  verify_sessions: true
  allowed_origins:
    - https://vote.example.com
store:
  driver: sqlite
  dsn: ${VOTING_TEST_DSN}
sessions:
  retention: 2h
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("expected 127.0.0.1:9090, got %s", cfg.Server.Addr())
	}
	if cfg.Live.SendBuffer != 16 || cfg.Live.PongWait != 30*time.Second {
		t.Errorf("unexpected live settings %+v", cfg.Live)
	}
	if !cfg.Live.VerifySessions || cfg.Live.EchoRestWrites {
		t.Errorf("unexpected live flags %+v", cfg.Live)
	}
	if len(cfg.Live.AllowedOrigins) != 1 || cfg.Live.AllowedOrigins[0] != "https://vote.example.com" {
		t.Errorf("unexpected origins %v", cfg.Live.AllowedOrigins)
	}
	if cfg.Store.DSN != "file:test.db" {
		t.Errorf("expected env-expanded dsn, got %q", cfg.Store.DSN)
	}
	if cfg.Sessions.Retention != 2*time.Hour {
		t.Errorf("expected retention 2h, got %v", cfg.Sessions.Retention)
	}
	// Unset fields fall back to defaults
	if cfg.Live.WriteWait != DefaultWriteWait {
		t.Errorf("expected default write wait, got %v", cfg.Live.WriteWait)
	}
	if cfg.Sessions.CleanupInterval != DefaultCleanupInterval {
		t.Errorf("expected default cleanup interval, got %v", cfg.Sessions.CleanupInterval)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadAndValidate("")
		if err != nil {
			t.Fatalf("LoadAndValidate failed: %v", err)
		}
		if cfg.Server.Port != DefaultPort {
			t.Errorf("expected default port, got %d", cfg.Server.Port)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voting.yaml")
		if err := os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := LoadAndValidate(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for postgres without dsn, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"ngrok without token", func(c *Config) { c.Server.Ngrok.Enabled = true }},
		{"zero send buffer", func(c *Config) { c.Live.SendBuffer = 0 }},
		{"negative write wait", func(c *Config) { c.Live.WriteWait = -time.Second }},
		{"tiny pong wait", func(c *Config) { c.Live.PongWait = time.Nanosecond }},
		{"zero max message", func(c *Config) { c.Live.MaxMessageSize = 0 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"sqlite without dsn", func(c *Config) { c.Store.Driver = DriverSQLite }},
		{"file without dir", func(c *Config) { c.Store.Driver = DriverFile; c.Store.DataDir = "" }},
		{"negative retention", func(c *Config) { c.Sessions.Retention = -time.Hour }},
		{"zero cleanup interval", func(c *Config) { c.Sessions.CleanupInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
