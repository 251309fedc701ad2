// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. Loading order: defaults, YAML file,
// environment variables (VOLTACCESS_SECTION_KEY).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     int    `yaml:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig holds the token settings.
type AuthConfig struct {
	TokenSecret          string `yaml:"token_secret"`
	TokenValidityMinutes int    `yaml:"token_validity_minutes"`
	Issuer               string `yaml:"issuer"`
}

// CORSConfig lists the allowed cross-origin hosts.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds the per-IP token bucket parameters.
type RateLimitConfig struct {
	Burst     int `yaml:"burst"`
	PerSecond int `yaml:"per_second"`
}

// TokenValidity returns the configured validity span as a duration.
func (c AuthConfig) TokenValidity() time.Duration {
	return time.Duration(c.TokenValidityMinutes) * time.Minute
}

// Load reads the YAML file at path (skipped when empty), applies env
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
			MaxBodyBytes:    1 << 20,
		},
		Auth: AuthConfig{
			TokenValidityMinutes: 60,
			Issuer:               "voltaccess",
		},
		RateLimit: RateLimitConfig{
			Burst:     20,
			PerSecond: 10,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOLTACCESS_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VOLTACCESS_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VOLTACCESS_AUTH_TOKEN_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := os.Getenv("VOLTACCESS_AUTH_TOKEN_VALIDITY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			cfg.Auth.TokenValidityMinutes = minutes
		}
	}
	if v := os.Getenv("VOLTACCESS_CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if strings.TrimSpace(c.Auth.TokenSecret) == "" {
		return errors.New("auth.token_secret is required")
	}
	if c.Auth.TokenValidityMinutes <= 0 {
		return errors.New("auth.token_validity_minutes must be positive")
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return errors.New("rate_limit values must be positive")
	}
	return nil
}
