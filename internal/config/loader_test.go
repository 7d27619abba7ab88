package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHome points HOME at a temp dir so the allowed config directory is
// test-controlled.
func fakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "crewkit")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	fakeHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, ".crewkit", cfg.Workspace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.InDelta(t, 0.1, cfg.Memory.MinStrength, 1e-9)
	assert.Equal(t, "schemas", cfg.Schemas.Dir)
}

func TestLoadFromFile(t *testing.T) {
	home := fakeHome(t)
	path := writeConfig(t, home, `
workspace: /tmp/crew-state
logging:
  level: debug
  format: json
memory:
  min_strength: 0.25
schemas:
  dir: /tmp/schemas
  watch: true
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/crew-state", cfg.Workspace)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.InDelta(t, 0.25, cfg.Memory.MinStrength, 1e-9)
	assert.Equal(t, "/tmp/schemas", cfg.Schemas.Dir)
	assert.True(t, cfg.Schemas.Watch)
}

func TestEnvOverridesFile(t *testing.T) {
	home := fakeHome(t)
	path := writeConfig(t, home, "logging:\n  level: warn\n")
	t.Setenv("CREWKIT_LOGGING_LEVEL", "debug")
	t.Setenv("CREWKIT_WORKSPACE", "/tmp/env-workspace")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/env-workspace", cfg.Workspace)
}

func TestRejectsInsecurePermissions(t *testing.T) {
	home := fakeHome(t)
	path := writeConfig(t, home, "logging:\n  level: info\n")
	require.NoError(t, os.Chmod(path, 0o644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestRejectsPathOutsideAllowedDirs(t *testing.T) {
	fakeHome(t)
	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("{}"), 0o600))

	_, err := LoadWithFile(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in")
}

func TestRejectsInvalidValues(t *testing.T) {
	home := fakeHome(t)
	path := writeConfig(t, home, "logging:\n  level: loud\n")

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging level")
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Memory:  MemoryConfig{MinStrength: 0.5},
	}
	assert.NoError(t, valid.Validate())

	badFormat := valid
	badFormat.Logging.Format = "xml"
	assert.Error(t, badFormat.Validate())

	badStrength := valid
	badStrength.Memory.MinStrength = 1.5
	assert.Error(t, badStrength.Validate())
}
