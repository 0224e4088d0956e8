package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/postboard.db", cfg.Database.Path)
	assert.Equal(t, "postboard", cfg.Auth.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "postboard-backups", cfg.Backup.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.BackupInterval())
	assert.Equal(t, 24, cfg.Backup.Retain)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.BackupsEnabled())

	assert.Error(t, cfg.Validate(), "jwt secret is required")
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POSTBOARD_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("POSTBOARD_DATABASE_DRIVER", "postgres")
	t.Setenv("POSTBOARD_DATABASE_DSN", "postgres://u:p@localhost/db")
	t.Setenv("POSTBOARD_AUTH_JWTSECRET", "s3cret")
	t.Setenv("POSTBOARD_AUTH_TOKENTTLMINUTES", "5")
	t.Setenv("POSTBOARD_REDIS_ADDR", "localhost:6379")
	t.Setenv("POSTBOARD_BOOTSTRAP_USERNAME", "user")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "user", cfg.Bootstrap.Username)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("POSTBOARD_AUTH_ISSUER=from-dotenv\nPOSTBOARD_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("POSTBOARD_LOG_LEVEL", "warn")
	// godotenv sets variables process-wide; restore them after the test
	t.Setenv("POSTBOARD_AUTH_ISSUER", "")
	require.NoError(t, os.Unsetenv("POSTBOARD_AUTH_ISSUER"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Issuer)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "postboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: memory
auth:
  jwtsecret: from-file
backup:
  bucket: snapshots
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.False(t, cfg.BackupsEnabled(), "snapshots need the sqlite driver")
	assert.NoError(t, cfg.Validate())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Auth.JWTSecret = "k"
	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "unknown database.driver")

	cfg.Database.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "database.dsn")

	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = "db.sqlite"
	cfg.Backup.Bucket = "b"
	assert.ErrorContains(t, cfg.Validate(), "backup.intervalminutes")

	cfg.Backup.IntervalMinutes = 10
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.BackupsEnabled())
}
