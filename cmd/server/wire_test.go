package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/auth"
	"postboard/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewLogger(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Log.Level = "loud"
	_, err = newLogger(cfg)
	assert.Error(t, err)

	cfg.Log.Level = "info"
	cfg.Log.Format = "xml"
	_, err = newLogger(cfg)
	assert.Error(t, err)
}

func TestOpenStoresSQLiteAndBootstrap(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "postboard.db")
	cfg.Auth.BcryptCost = 4
	cfg.Bootstrap.Username = "user"
	cfg.Bootstrap.Password = "pass123"
	cfg.Bootstrap.Email = "user@example.com"
	ctx := context.Background()

	s, err := openStores(ctx, cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.NotNil(t, s.snapshotter)

	users := newUserService(cfg, s)
	require.NoError(t, bootstrapUser(ctx, cfg, users, quietLogger()))
	require.NoError(t, bootstrapUser(ctx, cfg, users, quietLogger()), "bootstrap is idempotent")

	seeded, err := users.Authenticate(ctx, "user", "pass123")
	require.NoError(t, err)
	assert.False(t, seeded.Disabled)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = "oracle"
	_, err := openStores(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "oracle")
}

func TestBootstrapNeedsCredentials(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = config.DriverMemory
	s, err := openStores(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, s.snapshotter)

	cfg.Bootstrap.Username = "user"
	err = bootstrapUser(context.Background(), cfg, newUserService(cfg, s), quietLogger())
	assert.Error(t, err)

	cfg.Bootstrap.Username = ""
	assert.NoError(t, bootstrapUser(context.Background(), cfg, newUserService(cfg, s), quietLogger()))
}

func TestBuildRevokerDefaultsToMemory(t *testing.T) {
	revoker, closeFn, err := buildRevoker(context.Background(), config.Config{}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &auth.MemoryRevoker{}, revoker)
	assert.NoError(t, closeFn())
}

func TestBuildSchedulerNeedsSnapshotter(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = config.DriverMemory
	cfg.Backup.Bucket = "b"
	_, err := buildScheduler(context.Background(), cfg, &stores{}, quietLogger())
	assert.ErrorContains(t, err, "cannot be snapshotted")
}

func TestUserCreateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("POSTBOARD_DATABASE_PATH", filepath.Join(dir, "postboard.db"))
	t.Setenv("POSTBOARD_AUTH_BCRYPTCOST", "4")
	t.Setenv("POSTBOARD_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"user", "create", "--username", "alice", "--email", "alice@example.com", "--password", "s3cret", "--full-name", "Alice"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "created user alice")

	cfg, err := config.Load("")
	require.NoError(t, err)
	s, err := openStores(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	alice, err := newUserService(cfg, s).Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, alice.FullName)
	assert.Equal(t, "Alice", *alice.FullName)
}
