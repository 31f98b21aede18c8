package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "./data/records.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, LegacyDriverFile, cfg.Legacy.Driver)
	assert.Equal(t, []string{"sidebarHidden", "activeYearId"}, cfg.Migration.KeepKeys)
	assert.Equal(t, "json", cfg.Export.Format)
	assert.Equal(t, 30*24*time.Hour, cfg.Export.Retention)
	assert.True(t, cfg.Migration.PurgeLegacy)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_PATH", "/tmp/school.db")
	t.Setenv("DB_BUSY_TIMEOUT", "250ms")
	t.Setenv("LEGACY_DRIVER", "REDIS")
	t.Setenv("LEGACY_REDIS_PORT", "6380")
	t.Setenv("MIGRATION_PURGE_LEGACY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/school.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.BusyTimeout)
	assert.Equal(t, LegacyDriverRedis, cfg.Legacy.Driver)
	assert.Equal(t, 6380, cfg.Legacy.Redis.Port)
	assert.False(t, cfg.Migration.PurgeLegacy)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
