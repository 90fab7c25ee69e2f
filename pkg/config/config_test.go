package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) string {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	dir := t.TempDir()
	require.NoError(t, LoadConfig(dir))
	return dir
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	dir := loadTestConfig(t)

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, DefaultMaxVersions, cfg.MaxVersions)
	assert.Equal(t, DefaultDebounceInterval, cfg.DebounceInterval)
	assert.True(t, cfg.TrackingEnabled)

	// The file must exist on disk after first load.
	_, err = os.Stat(filepath.Join(dir, ConfigDir, ConfigFilename))
	require.NoError(t, err)
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := loadTestConfig(t)
	require.NoError(t, UpdateTracking(false))

	// Reload from the same directory and check persistence.
	ResetForTest()
	require.NoError(t, LoadConfig(dir))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.False(t, cfg.TrackingEnabled)
}

func TestGetConfigBeforeLoad(t *testing.T) {
	ResetForTest()
	_, err := GetConfig()
	require.Error(t, err)
	assert.False(t, IsLoaded())
}

func TestUpdateTimingValidation(t *testing.T) {
	loadTestConfig(t)

	// Threshold shorter than interval is rejected.
	err := UpdateTiming(time.Minute, time.Second, time.Second)
	require.Error(t, err)

	// The stored config is untouched after a rejected update.
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckpointThreshold, cfg.CheckpointThreshold)

	require.NoError(t, UpdateTiming(30*time.Second, 2*time.Minute, time.Second))
	cfg, err = GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.CheckpointThreshold)
	assert.Equal(t, time.Second, cfg.DebounceInterval)
}

func TestUpdateRetentionValidation(t *testing.T) {
	loadTestConfig(t)

	require.Error(t, UpdateRetention(0, 500))
	require.Error(t, UpdateRetention(5, 0))
	require.NoError(t, UpdateRetention(10, 200))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxVersions)
	assert.Equal(t, 200, cfg.MaxEventTextLen)
}

func TestGetConfigReturnsCopy(t *testing.T) {
	loadTestConfig(t)

	cfg, err := GetConfig()
	require.NoError(t, err)
	cfg.MaxVersions = 99

	fresh, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxVersions, fresh.MaxVersions)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceInterval = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CheckpointInterval = -time.Second
	require.Error(t, cfg.Validate())
}
