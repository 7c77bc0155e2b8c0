package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, ":9090", cfg.Server.AdminAddr)
	assert.Equal(t, int64(86400), cfg.Auth.TokenLifetimeSeconds)
	assert.Equal(t, 12, cfg.Auth.BCryptCost)
	assert.Contains(t, cfg.Auth.PublicPaths, "/api/v1/auth")
	assert.Contains(t, cfg.Auth.PublicPaths, "/health")
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_addr: ":8888"
auth:
  secret: file-secret
  token_lifetime_seconds: 3600
  public_paths:
    - /api/v1/auth
    - /docs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8888", cfg.Server.ListenAddr)
	assert.Equal(t, "file-secret", cfg.Auth.Secret)
	assert.Equal(t, time.Hour, cfg.TokenLifetime())
	assert.Equal(t, []string{"/api/v1/auth", "/docs"}, cfg.PublicPaths())

	// Unset fields keep their defaults.
	assert.Equal(t, ":9090", cfg.Server.AdminAddr)
	assert.Equal(t, 12, cfg.Auth.BCryptCost)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  secret: file-secret
`)

	t.Setenv("AUTH_SECRET", "env-secret")
	t.Setenv("AUTH_TOKEN_LIFETIME_SECONDS", "600")
	t.Setenv("LISTEN_ADDR", ":7070")
	t.Setenv("DATABASE_DSN", "postgres://auth@db/auth")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.Secret)
	assert.Equal(t, int64(600), cfg.Auth.TokenLifetimeSeconds)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, "postgres://auth@db/auth", cfg.DB.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Auth.Secret = "s" },
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "non-positive lifetime",
			mutate: func(c *Config) {
				c.Auth.Secret = "s"
				c.Auth.TokenLifetimeSeconds = 0
			},
			wantErr: true,
		},
		{
			name: "missing listen addr",
			mutate: func(c *Config) {
				c.Auth.Secret = "s"
				c.Server.ListenAddr = ""
			},
			wantErr: true,
		},
		{
			name: "audit enabled without file",
			mutate: func(c *Config) {
				c.Auth.Secret = "s"
				c.Audit.Enabled = true
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPublicPathsSnapshot(t *testing.T) {
	cfg := Default()

	paths := cfg.PublicPaths()
	paths[0] = "/mutated"

	// Mutating the snapshot never touches the shared config.
	assert.NotEqual(t, "/mutated", cfg.PublicPaths()[0])

	cfg.SetPublicPaths([]string{"/only"})
	assert.Equal(t, []string{"/only"}, cfg.PublicPaths())
}
