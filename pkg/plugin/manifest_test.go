package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestManifestLoader_Load(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	loader := NewManifestLoader(logger)

	t.Run("loads valid manifest", func(t *testing.T) {
		path := writeManifest(t, `{
			"name": "pancakeswap",
			"description": "DEX router operations",
			"commands": [
				{"name": "quote-out", "description": "Quote output amount"},
				{"name": "swap-auto", "mutatesEnv": false}
			]
		}`)

		manifest, err := loader.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "pancakeswap", manifest.Name)
		require.Len(t, manifest.Commands, 2)
		assert.Equal(t, "quote-out", manifest.Commands[0].Name)
	})

	t.Run("rejects missing commands", func(t *testing.T) {
		path := writeManifest(t, `{"name": "empty"}`)
		_, err := loader.Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects empty commands array", func(t *testing.T) {
		path := writeManifest(t, `{"name": "empty", "commands": []}`)
		_, err := loader.Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects bad plugin name", func(t *testing.T) {
		path := writeManifest(t, `{"name": "Has Spaces", "commands": [{"name": "x"}]}`)
		_, err := loader.Load(path)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate command names", func(t *testing.T) {
		path := writeManifest(t, `{
			"name": "dup",
			"commands": [{"name": "foo"}, {"name": "foo"}]
		}`)
		_, err := loader.Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate command")
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		path := writeManifest(t, `{not json`)
		_, err := loader.Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := loader.Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
