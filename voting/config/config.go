package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Live     LiveConfig     `yaml:"live"`
	Store    StoreConfig    `yaml:"store"`
	Sessions SessionsConfig `yaml:"sessions"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Ngrok           NgrokConfig   `yaml:"ngrok"`
}

type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// LiveConfig tunes the WebSocket fan-out layer
type LiveConfig struct {
	SendBuffer     int           `yaml:"send_buffer"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	// VerifySessions rejects upgrades for access codes the store doesn't know
	VerifySessions bool `yaml:"verify_sessions"`
	// EchoRestWrites broadcasts cards and votes created over REST
	EchoRestWrites bool     `yaml:"echo_rest_writes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	Driver  string `yaml:"driver"` // memory, file, sqlite, postgres, pgx
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"data_dir"`
}

type SessionsConfig struct {
	// Retention is how long a closed session is kept before cleanup deletes it
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PingPeriod is how often the server pings a client; it must be shorter than PongWait
func (l LiveConfig) PingPeriod() time.Duration {
	return (l.PongWait * 9) / 10
}
