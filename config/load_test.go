package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 60, cfg.Scheduler.CheckIntervalSeconds)
	assert.Equal(t, 30, cfg.Scheduler.DefaultLookbackDays)
	assert.Equal(t, 30, cfg.History.TTLDays)
	assert.Equal(t, 100, cfg.History.MaxPerJob)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quotron.toml")
	content := `
[redis]
addr = "redis.internal:6380"
db = 2

[scheduler]
check_interval_seconds = 15

[history]
max_per_job = 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 15, cfg.Scheduler.CheckIntervalSeconds)
	assert.Equal(t, 25, cfg.History.MaxPerJob)
	// Untouched keys keep defaults
	assert.Equal(t, 30, cfg.History.TTLDays)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scheduler.CheckIntervalSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg.Scheduler.CheckIntervalSeconds = 60
	cfg.History.MaxPerJob = -1
	assert.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "1m0s", cfg.Scheduler.CheckInterval().String())
	assert.Equal(t, "720h0m0s", cfg.History.TTL().String())
}
