// Package config provides YAML configuration loading with environment
// overrides and hot reload of the public path allow-list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loaded once at startup.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	Audit  AuditConfig  `yaml:"audit"`
	Log    LogConfig    `yaml:"log"`

	// mu guards PublicPaths, the only field that can change after startup
	// (via the config file watcher).
	mu sync.RWMutex
}

// ServerConfig configures the API and admin HTTP listeners.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	AdminAddr       string        `yaml:"admin_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AuthConfig configures the authentication core.
type AuthConfig struct {
	// Secret signs access tokens. Rotating it invalidates all outstanding
	// tokens, which is acceptable for short-lived tokens.
	Secret string `yaml:"secret"`

	Issuer string `yaml:"issuer"`

	// TokenLifetimeSeconds is the fixed token lifetime (default 86400).
	TokenLifetimeSeconds int64 `yaml:"token_lifetime_seconds"`

	BCryptCost int `yaml:"bcrypt_cost"`

	// PublicPaths lists path prefixes the authentication gate passes through
	// without looking at the Authorization header.
	PublicPaths []string `yaml:"public_paths"`

	// LoginRateLimit caps login attempts per username+IP. Zero disables.
	LoginRateLimit float64 `yaml:"login_rate_limit"`
	LoginRateBurst int     `yaml:"login_rate_burst"`
}

// DBConfig configures the PostgreSQL credential store.
type DBConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the redis connection for login rate limiting.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuditConfig configures the authentication audit trail.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with sensible defaults. The signing
// secret has no default; it must come from the file or environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			AdminAddr:       ":9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Auth: AuthConfig{
			Issuer:               "auth-core",
			TokenLifetimeSeconds: 86400,
			BCryptCost:           12,
			PublicPaths: []string{
				"/api/v1/auth",
				"/health",
				"/swagger-ui",
				"/v3/api-docs",
			},
			LoginRateLimit: 1,
			LoginRateBurst: 10,
		},
		Audit: AuditConfig{
			MaxSizeMB:  100,
			MaxAgeDays: 30,
			MaxBackups: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result. An empty path loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides file values from the environment. Secrets in
// particular are expected to arrive this way in deployments.
func (c *Config) applyEnv() {
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_TOKEN_LIFETIME_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Auth.TokenLifetimeSeconds = n
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		c.Server.AdminAddr = v
	}
}

// Validate checks the configuration for startup-blocking problems.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required (or set AUTH_SECRET)")
	}
	if c.Auth.TokenLifetimeSeconds <= 0 {
		return fmt.Errorf("auth.token_lifetime_seconds must be positive")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Audit.Enabled && c.Audit.File == "" {
		return fmt.Errorf("audit.file is required when audit is enabled")
	}
	return nil
}

// TokenLifetime returns the configured token lifetime as a duration.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.Auth.TokenLifetimeSeconds) * time.Second
}

// PublicPaths returns a snapshot of the public path prefixes.
func (c *Config) PublicPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.Auth.PublicPaths))
	copy(out, c.Auth.PublicPaths)
	return out
}

// SetPublicPaths atomically replaces the public path prefixes.
// Called by the config watcher on reload.
func (c *Config) SetPublicPaths(paths []string) {
	cp := make([]string, len(paths))
	copy(cp, paths)

	c.mu.Lock()
	c.Auth.PublicPaths = cp
	c.mu.Unlock()
}
