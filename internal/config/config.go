// Package config loads the server configuration for the espalier command.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML values like "30m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Redis configures the Redis state store and locker.
type Redis struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
	Lock     bool     `yaml:"lock"`
}

// Config is the server configuration.
type Config struct {
	Addr         string `yaml:"addr"`
	BasePath     string `yaml:"base_path"`
	SessionParam string `yaml:"session_param"`
	LogLevel     string `yaml:"log_level"`
	LogJSON      bool   `yaml:"log_json"`
	Redis        *Redis `yaml:"redis"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:         ":8080",
		BasePath:     "/flows",
		SessionParam: "_id",
		LogLevel:     "info",
	}
}

// Load reads a YAML configuration file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Redis != nil && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis configured without an address")
	}
	return cfg, nil
}
