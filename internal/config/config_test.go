package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("EXPORTD_EXPORT_PATH", "/srv/export")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/export", cfg.Export.Path)
	assert.Equal(t, "/srv/export", cfg.Export.Name)
	assert.Equal(t, 2049, cfg.Listen.Port)
	assert.Equal(t, "0.0.0.0:2049", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
}

func TestLoadMissingExportPathFails(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.path")
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "" +
		"listen:\n  host: 127.0.0.1\n  port: 3049\n" +
		"export:\n  path: /data\n  name: /data\n  read_only: true\n" +
		"logging:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3049, cfg.Listen.Port)
	assert.True(t, cfg.Export.ReadOnly)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  path: /data\n"), 0o644))

	t.Setenv("EXPORTD_LISTEN_PORT", "4049")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4049, cfg.Listen.Port)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default("/srv/export")
	cfg.Logging.Level = "VERBOSE"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default("/srv/export")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Export.Path, loaded.Export.Path)
	assert.Equal(t, cfg.Listen.Port, loaded.Listen.Port)
}
