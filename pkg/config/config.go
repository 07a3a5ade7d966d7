package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default per-client-IP rate limit for the front door. Writes draw
// from this bucket directly and reads from one three times larger, so
// the defaults work out to 15 write and 45 read requests a minute.
const (
	DefaultRateLimitRPS   = 0.25
	DefaultRateLimitBurst = 10
)

// Config holds the control-plane server configuration.
type Config struct {
	// ListenAddr is the address the HTTP front door binds to.
	ListenAddr string `yaml:"listen_addr"`

	// DatabasePath is the catalog database file. The DATABASE_URL
	// environment variable overrides it; a sqlite:/// prefix is
	// accepted and stripped for compatibility with older deployments.
	DatabasePath string `yaml:"database_path"`

	// NodeAuthToken is sent as a bearer token on every node request.
	NodeAuthToken string `yaml:"node_auth_token"`

	// SQLSigningKey is sent as the x-signature header on SQL service
	// forwards.
	SQLSigningKey string `yaml:"sql_signing_key"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is the per-IP token bucket for the front door.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		DatabasePath:  "fabric.db",
		SQLSigningKey: "mysecretkey123", // placeholder, override in production
		LogLevel:      "info",
		LogJSON:       true,
		RateLimit: RateLimitConfig{
			RPS:   DefaultRateLimitRPS,
			Burst: DefaultRateLimitBurst,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabasePath = strings.TrimPrefix(v, "sqlite:///")
	}
	if v := os.Getenv("NODE_AUTH_TOKEN"); v != "" {
		c.NodeAuthToken = v
	}
	if v := os.Getenv("SQL_SIGNING_KEY"); v != "" {
		c.SQLSigningKey = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
}
