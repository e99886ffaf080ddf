package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.Ngrok.Enabled && c.Server.Ngrok.AuthToken == "" {
		return fmt.Errorf("%w: server.ngrok.auth_token is required when ngrok is enabled", ErrInvalidConfig)
	}

	if c.Live.SendBuffer < 1 {
		return fmt.Errorf("%w: live.send_buffer must be >= 1", ErrInvalidConfig)
	}
	if c.Live.WriteWait <= 0 {
		return fmt.Errorf("%w: live.write_wait must be positive", ErrInvalidConfig)
	}
	if c.Live.PingPeriod() <= 0 {
		return fmt.Errorf("%w: live.pong_wait is too short", ErrInvalidConfig)
	}
	if c.Live.MaxMessageSize < 1 {
		return fmt.Errorf("%w: live.max_message_size must be >= 1", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Store.DataDir == "" {
			return fmt.Errorf("%w: store.data_dir is required for the file driver", ErrInvalidConfig)
		}
	case DriverSQLite, DriverPostgres, DriverPgx:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the %s driver", ErrInvalidConfig, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver '%s'", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Sessions.Retention < 0 {
		return fmt.Errorf("%w: sessions.retention must not be negative", ErrInvalidConfig)
	}
	if c.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("%w: sessions.cleanup_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
