package cmdconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "mongo", cfg.Store)
	require.Equal(t, "accounts", cfg.MongoDatabase)
	require.Equal(t, 587, cfg.SMTPPort)
	require.Equal(t, time.Hour, cfg.JanitorInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ACCOUNTS_STORE", "Redis")
	t.Setenv("ACCOUNTS_BASE_URL", "https://accounts.example.com")
	t.Setenv("ACCOUNTS_SMTP_PORT", "465")
	t.Setenv("ACCOUNTS_JANITOR_INTERVAL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "redis", cfg.Store)
	require.Equal(t, "https://accounts.example.com", cfg.BaseURL)
	require.Equal(t, 465, cfg.SMTPPort)
	require.Equal(t, 15*time.Minute, cfg.JanitorInterval)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STORE: memory\nMAIL_FROM: team@example.com\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("ACCOUNTS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "memory", cfg.Store)
	require.Equal(t, "team@example.com", cfg.MailFrom)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejects(t *testing.T) {
	t.Setenv("ACCOUNTS_STORE", "postgres")
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.InfoLevel))
	require.False(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger("debug")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	s, closeFn, err := OpenStore(ctx, &Config{Store: "memory"}, logger)
	require.NoError(t, err)
	require.NotNil(t, s)
	closeFn()

	mr := miniredis.RunT(t)
	s, closeFn, err = OpenStore(ctx, &Config{Store: "redis", RedisAddr: mr.Addr(), RedisPrefix: "t", StoreTimeout: time.Second}, logger)
	require.NoError(t, err)
	require.IsType(t, &redisstore.Store{}, s)
	closeFn()

	_, closeFn, err = OpenStore(ctx, &Config{Store: "sqlite"}, logger)
	require.Error(t, err)
	closeFn()
}
