package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atelier-editor/atelier/pkg/atelier/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point config discovery at an empty directory.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, config.DefaultJournalRetentionDays, cfg.Journal.RetentionDays)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "atelier")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	yaml := `
data_dir: /tmp/atelier-test
server:
  listen_addr: "127.0.0.1:9999"
journal:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/atelier-test", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.ListenAddr)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ATELIER_DATA_DIR", "/var/lib/atelier")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/atelier", cfg.DataDir)
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir, err := config.ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/atelier", dir)
}
