package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mibi-viewer/internal/logger"
	"mibi-viewer/internal/models"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(nil)))

	assert.Equal(t, logger.InfoLevel, cfg.Level())
	assert.False(t, cfg.JSONLogs)
	assert.Zero(t, cfg.Seed)
	assert.EqualValues(t, 1200, cfg.Window.Width)
	assert.EqualValues(t, 800, cfg.Window.Height)
	assert.Equal(t, models.InterpolationGaussian, cfg.Interpolation())
}

func TestResampling(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{EnvResampling: "nearest"})))
	assert.Equal(t, models.InterpolationNearest, cfg.Interpolation())

	assert.Error(t, Default().applyEnv(envMap(map[string]string{EnvResampling: "bicubic"})))

	empty := Default()
	empty.Resampling = ""
	assert.Error(t, empty.applyEnv(envMap(nil)), "an explicit empty value is not a mode")
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		EnvLogLevel: "warn",
		EnvDebug:    "1",
		EnvJSONLogs: "true",
		EnvSeed:     "42",
	}))
	require.NoError(t, err)

	assert.Equal(t, logger.WarnLevel, cfg.Level(), "LOG_LEVEL takes precedence over DEBUG")
	assert.True(t, cfg.JSONLogs)
	assert.EqualValues(t, 42, cfg.Seed)
}

func TestDebugFlag(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{EnvDebug: "1"})))
	assert.Equal(t, logger.DebugLevel, cfg.Level())
}

func TestBadEnvValues(t *testing.T) {
	assert.Error(t, Default().applyEnv(envMap(map[string]string{EnvJSONLogs: "maybe"})))
	assert.Error(t, Default().applyEnv(envMap(map[string]string{EnvSeed: "-1"})))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	doc := "logLevel: debug\njsonLogs: true\nseed: 7\nresampling: nearest\nwindow:\n  width: 400\n  height: 900\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDebug, "")
	t.Setenv(EnvJSONLogs, "")
	t.Setenv(EnvSeed, "")
	t.Setenv(EnvResampling, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, cfg.Level())
	assert.Equal(t, models.InterpolationNearest, cfg.Interpolation())
	assert.True(t, cfg.JSONLogs)
	assert.EqualValues(t, 7, cfg.Seed)
	assert.EqualValues(t, 800, cfg.Window.Width, "width is clamped to the minimum")
	assert.EqualValues(t, 900, cfg.Window.Height)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
