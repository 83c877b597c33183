package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "AUTO_MIGRATE", "AUTH_JWT_SECRET", "ROOM_TTL_HOURS",
		"HEARTBEAT_STALE_SECONDS", "CHAT_TAIL_SIZE", "ROOM_CODE_ATTEMPTS",
		"MUSIC_TRACK_COUNT", "CORS_ORIGINS", "REDIS_URL", "RATE_LIMIT_PER_SECOND",
		"RATE_LIMIT_BURST", "LOG_LEVEL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME_SECONDS", "DB_CONN_MAX_IDLE_SECONDS",
	} {
		t.Setenv(key, "")
	}
	assert.Equal(t, Default(), Load())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("ROOM_TTL_HOURS", "6")
	t.Setenv("HEARTBEAT_STALE_SECONDS", "-5")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RATE_LIMIT_PER_SECOND", "0")
	t.Setenv("MUSIC_TRACK_COUNT", "abc")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 6, cfg.RoomTTLHours)
	assert.Equal(t, Default().HeartbeatStaleSeconds, cfg.HeartbeatStaleSeconds)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimitPerSecond)
	assert.Equal(t, Default().MusicTrackCount, cfg.MusicTrackCount)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BULLS_COWS_DOTENV_TEST=loaded\n"), 0o600))
	t.Setenv("BULLS_COWS_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("BULLS_COWS_DOTENV_TEST"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("BULLS_COWS_DOTENV_TEST"))
}
