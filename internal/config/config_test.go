package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PIPEDREAM_THEME", "PIPEDREAM_LOG_LEVEL", "PIPEDREAM_DEBUG", "PIPEDREAM_SHELL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "pipedream", cfg.Name)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "Nothing", cfg.UI.NothingPlaceholder)
	assert.Contains(t, cfg.Shell.Prelude, "pipedream/sh")
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".pipedream", "config.yaml")

	cfg := DefaultConfig()
	cfg.UI.Theme = "light"
	cfg.Shell.Prelude = []string{"strings"}
	cfg.Logging.Categories = map[string]bool{"shell": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.UI.Theme)
	assert.Equal(t, []string{"strings"}, loaded.Shell.Prelude)
	assert.Equal(t, map[string]bool{"shell": false}, loaded.Logging.Categories)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().UI, cfg.UI)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("theme and level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PIPEDREAM_THEME", "light")
		t.Setenv("PIPEDREAM_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "light", cfg.UI.Theme)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("debug toggle", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PIPEDREAM_DEBUG", "true")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Logging.DebugMode)

		t.Setenv("PIPEDREAM_DEBUG", "0")
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Logging.DebugMode)
	})

	t.Run("shell binary", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PIPEDREAM_SHELL", "bash")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "bash", cfg.Execution.ShellBinary)
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.Theme = "neon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Execution.ShellBinary = ""
	assert.Error(t, cfg.Validate())

	cfg.Shell.AllowExec = false
	assert.NoError(t, cfg.Validate())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := DefaultPath(t.TempDir())
	require.NoError(t, DefaultConfig().Save(path))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	cfg := DefaultConfig()
	cfg.UI.Theme = "light"
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-w.Updates():
		assert.Equal(t, "light", got.UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
