package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orgtreehq/orgtree/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 6543, cfg.Database.Postgres.Port)
	require.Equal(t, "orgtree", cfg.Database.Postgres.Database)

	require.Equal(t, "csrf-secret", cfg.Security.CSRFSecret)
	require.Equal(t, 12*time.Hour, cfg.Security.CSRFTokenTTL)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "orgtree-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, "root@example.com", cfg.Auth.Bootstrap.SuperuserEmail)
	require.Equal(t, "Root", cfg.Auth.Bootstrap.SuperuserName)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, 45, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@every 6h", cfg.Maintenance.AuditSchedule)
	require.Equal(t, 168*time.Hour, cfg.Maintenance.TransferMaxAge)
	require.Equal(t, "@every 12h", cfg.Maintenance.TransferSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 24*time.Hour, cfg.Security.CSRFTokenTTL)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "orgtree", cfg.Auth.JWT.Issuer)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, 30*24*time.Hour, cfg.Maintenance.TransferMaxAge)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "postgres",
		Postgres: DBAuthConfig{
			Host:     "db.example.com",
			Port:     6543,
			Database: "orgtree",
			Username: "orgtree",
			Password: "secret",
		},
	}

	conn := cfg.ConnectionConfig()
	require.Equal(t, "postgres", conn.Driver)
	require.Equal(t, "db.example.com", conn.Host)
	require.Equal(t, 6543, conn.Port)
	require.Equal(t, "orgtree", conn.Name)
	require.Equal(t, "orgtree", conn.User)
	require.Equal(t, "secret", conn.Password)

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/test.sqlite"}
	conn = sqlite.ConnectionConfig()
	require.Equal(t, "sqlite", conn.Driver)
	require.Equal(t, "./data/test.sqlite", conn.Path)
	require.Empty(t, conn.Host)
}

func TestAuthConfigAdapter(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret: "secret",
			Issuer: "issuer",
			TTL:    30 * time.Minute,
		},
	}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, jwtCfg)

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}
