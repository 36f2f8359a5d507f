package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))
		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.NotEmpty(t, cfg.Plugins.Dir)
	})

	t.Run("reads config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "toolgate.json")
		content := `{
			"server": {"port": 9100, "allow_external": true},
			"plugins": {"dir": "` + filepath.ToSlash(dir) + `", "interpreter": "sh", "entry_file": "cli", "disabled": "botfather"}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.True(t, cfg.Server.AllowExternal)
		assert.Equal(t, "sh", cfg.Plugins.Interpreter)
		assert.Equal(t, "cli", cfg.Plugins.EntryFile)
		assert.True(t, cfg.Plugins.DisabledSet()["botfather"])
	})

	t.Run("rejects invalid config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "toolgate.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": -1}}`), 0644))

		_, err := NewLoader(path).Load()
		assert.Error(t, err)
	})
}

func TestEnvFile(t *testing.T) {
	t.Run("load does not override existing values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TOOLGATE_TEST_KEY=from_file\n"), 0644))

		t.Setenv("TOOLGATE_TEST_KEY", "from_process")
		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "from_process", os.Getenv("TOOLGATE_TEST_KEY"))
	})

	t.Run("reload overrides existing values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TOOLGATE_TEST_KEY=updated\n"), 0644))

		t.Setenv("TOOLGATE_TEST_KEY", "stale")
		require.NoError(t, ReloadEnvFile(path))
		assert.Equal(t, "updated", os.Getenv("TOOLGATE_TEST_KEY"))
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
		assert.NoError(t, ReloadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
		assert.NoError(t, LoadEnvFile(""))
	})
}
