// Package config loads server settings from YAML.
//
// Load reads a file, expands ${VAR} references from the environment, and
// fills unset fields from the Default* constants. Validate reports the
// first unusable value wrapped in ErrInvalidConfig.
//
// Example file:
//
//	server:
//	  port: 8080
//	live:
//	  send_buffer: 256
//	  write_wait: 10s
//	  pong_wait: 60s
//	  verify_sessions: true
//	store:
//	  driver: sqlite
//	  dsn: file:voting.db
//	sessions:
//	  retention: 24h
//
// Command-line flags override file values; see main.
package config
