// Package config holds the service configuration, layered from defaults,
// an optional YAML file and TALLY_-prefixed environment variables.
package config

import "time"

type Config struct {
	// Addr is the listen address for the HTTP API.
	Addr string `koanf:"addr"`
	// DBPath is the SQLite database file shared with the response
	// collection flow.
	DBPath string `koanf:"db_path"`
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// ServiceKeyHash is the bcrypt hash of the key external systems
	// exchange for a bearer token. Empty disables the token endpoint.
	ServiceKeyHash string `koanf:"service_key_hash"`
	// JWTSecret signs bearer tokens. A dev fallback is applied if empty.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL bounds the lifetime of issued tokens.
	TokenTTL time.Duration `koanf:"token_ttl"`
	// WebhookURL, when set, receives score.computed events.
	WebhookURL string `koanf:"webhook_url"`
	// DispatchQueueSize bounds the fire-and-forget event queue.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`
	// DispatchWorkers is the number of delivery goroutines.
	DispatchWorkers int `koanf:"dispatch_workers"`
	// CORSEnabled turns on permissive CORS for browser consumers.
	CORSEnabled bool `koanf:"cors_enabled"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		Addr:              ":8080",
		DBPath:            "tally.sqlite",
		LogLevel:          "info",
		TokenTTL:          time.Hour,
		DispatchQueueSize: 256,
		DispatchWorkers:   2,
	}
}
