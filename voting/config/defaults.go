package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost            = ""
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultSendBuffer     = 256
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxMessageSize = 64 * 1024

	DefaultStoreDriver = DriverMemory
	DefaultDataDir     = "sessions"

	DefaultRetention       = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = DefaultIdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Live defaults
	if c.Live.SendBuffer == 0 {
		c.Live.SendBuffer = DefaultSendBuffer
	}
	if c.Live.WriteWait == 0 {
		c.Live.WriteWait = DefaultWriteWait
	}
	if c.Live.PongWait == 0 {
		c.Live.PongWait = DefaultPongWait
	}
	if c.Live.MaxMessageSize == 0 {
		c.Live.MaxMessageSize = DefaultMaxMessageSize
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = DefaultDataDir
	}

	// Sessions defaults
	if c.Sessions.Retention == 0 {
		c.Sessions.Retention = DefaultRetention
	}
	if c.Sessions.CleanupInterval == 0 {
		c.Sessions.CleanupInterval = DefaultCleanupInterval
	}
}
