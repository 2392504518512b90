package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/fragd/fragd/store"
)

// Spec holds the runtime specification for the server.
// Config contains the serializable settings loaded from a file.
type Spec struct {
	Config *Config
	Store  store.Store
	Log    *slog.Logger
}

// Config is the fragd server configuration file structure.
type Config struct {
	// ListenAddr is the TCP address of the session protocol.
	ListenAddr string `yaml:"listenAddr"`

	// AdminAddr is the HTTP address of the stats/health endpoint.
	// Empty disables it.
	AdminAddr string `yaml:"adminAddr"`

	// MaxAttempts bounds the engine's optimistic retry loop. Zero
	// means the engine default.
	MaxAttempts int `yaml:"maxAttempts"`

	// OutgoingBuffer is the per-session response channel size.
	OutgoingBuffer int `yaml:"outgoingBuffer"`
}

// LoadConfig loads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:4980",
		AdminAddr:  "127.0.0.1:4981",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must be set")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("maxAttempts must not be negative")
	}
	return nil
}
