package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Invitations.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Invitations.SweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
database:
  driver: sqlite
  sqlite_path: /tmp/ws.db
invitations:
  ttl: 48h
auth:
  jwt_secret: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/ws.db", cfg.Database.SQLitePath)
	assert.Equal(t, 48*time.Hour, cfg.Invitations.TTL)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Database:    DatabaseConfig{Driver: DriverMemory},
		Auth:        AuthConfig{JWTSecret: "s"},
		Invitations: InvitationsConfig{TTL: time.Hour},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Database.Driver = "mysql"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Database.Driver = DriverSQLite
	assert.Error(t, bad.Validate())

	bad = base
	bad.Invitations.TTL = 0
	assert.Error(t, bad.Validate())
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Database: "ws", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/ws?sslmode=disable", cfg.DSN())
}
