package catalog

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/plugin"
)

func testRegistry() map[string]*plugin.Descriptor {
	return map[string]*plugin.Descriptor{
		"signer": {
			Name:      "signer",
			EntryPath: "/plugins/signer/cli.py",
			Commands: map[string]*plugin.CommandDescriptor{
				"create-wallet": {Name: "create-wallet", MutatesEnv: true},
				"list-wallets":  {Name: "list-wallets"},
			},
		},
		"weather": {
			Name:      "weather",
			EntryPath: "/plugins/weather/cli.py",
			Commands: map[string]*plugin.CommandDescriptor{
				"forecast": {Name: "forecast", Description: "Fetch the forecast"},
			},
		},
	}
}

func buildTestCatalog(t *testing.T, registry map[string]*plugin.Descriptor) *Catalog {
	t.Helper()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	return Build(registry, logger, metrics.New())
}

func TestBuild(t *testing.T) {
	t.Run("registers tools in deterministic order", func(t *testing.T) {
		c := buildTestCatalog(t, testRegistry())

		require.Equal(t, 3, c.Len())
		names := make([]string, 0, 3)
		for _, tool := range c.Tools() {
			names = append(names, tool.Name)
		}
		assert.Equal(t, []string{"signer_create-wallet", "signer_list-wallets", "weather_forecast"}, names)
	})

	t.Run("known tool gets hand-authored schema", func(t *testing.T) {
		c := buildTestCatalog(t, testRegistry())

		tool, ok := c.Get("signer_create-wallet")
		require.True(t, ok)
		assert.Contains(t, tool.Description, "wallet")
		assert.Equal(t, false, tool.InputSchema["additionalProperties"])
		assert.True(t, tool.MutatesEnv)
	})

	t.Run("unknown tool gets permissive schema and fallback description", func(t *testing.T) {
		registry := map[string]*plugin.Descriptor{
			"misc": {Name: "misc", Commands: map[string]*plugin.CommandDescriptor{
				"run": {Name: "run"},
			}},
		}
		c := buildTestCatalog(t, registry)

		tool, ok := c.Get("misc_run")
		require.True(t, ok)
		assert.Equal(t, "Execute misc run command", tool.Description)
		assert.Equal(t, true, tool.InputSchema["additionalProperties"])
	})

	t.Run("manifest description wins for unknown tools", func(t *testing.T) {
		c := buildTestCatalog(t, testRegistry())

		tool, ok := c.Get("weather_forecast")
		require.True(t, ok)
		assert.Equal(t, "Fetch the forecast", tool.Description)
	})

	t.Run("plugin with underscore in name is skipped", func(t *testing.T) {
		registry := testRegistry()
		registry["bad_name"] = &plugin.Descriptor{
			Name: "bad_name",
			Commands: map[string]*plugin.CommandDescriptor{
				"x": {Name: "x"},
			},
		}
		c := buildTestCatalog(t, registry)

		assert.Equal(t, 3, c.Len())
		_, ok := c.Get("bad_name_x")
		assert.False(t, ok)
	})

	t.Run("command with invalid characters is skipped", func(t *testing.T) {
		registry := map[string]*plugin.Descriptor{
			"p": {Name: "p", Commands: map[string]*plugin.CommandDescriptor{
				"ok":      {Name: "ok"},
				"has.dot": {Name: "has.dot"},
			}},
		}
		c := buildTestCatalog(t, registry)

		assert.Equal(t, 1, c.Len())
		_, ok := c.Get("p_ok")
		assert.True(t, ok)
	})

	t.Run("counts registered tools", func(t *testing.T) {
		m := metrics.New()
		logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
		Build(testRegistry(), logger, m)
		assert.Equal(t, int64(3), m.Snapshot().ToolsRegistered)
	})
}

func TestCatalog_Validate(t *testing.T) {
	c := buildTestCatalog(t, testRegistry())

	t.Run("accepts valid arguments", func(t *testing.T) {
		err := c.Validate("signer_create-wallet", map[string]any{"label": "main"})
		assert.NoError(t, err)
	})

	t.Run("rejects missing required argument", func(t *testing.T) {
		err := c.Validate("signer_create-wallet", map[string]any{})
		assert.Error(t, err)
	})

	t.Run("rejects unexpected argument on strict schema", func(t *testing.T) {
		err := c.Validate("signer_create-wallet", map[string]any{"label": "main", "extra": 1})
		assert.Error(t, err)
	})

	t.Run("nil arguments validate like empty object", func(t *testing.T) {
		assert.NoError(t, c.Validate("signer_list-wallets", nil))
		assert.Error(t, c.Validate("signer_create-wallet", nil))
	})

	t.Run("permissive schema accepts anything", func(t *testing.T) {
		err := c.Validate("weather_forecast", map[string]any{"city": "Jakarta", "days": 3})
		assert.NoError(t, err)
	})

	t.Run("unknown tool validates clean", func(t *testing.T) {
		assert.NoError(t, c.Validate("nope_nothing", map[string]any{"x": 1}))
	})

	t.Run("amount accepts string or number", func(t *testing.T) {
		registry := map[string]*plugin.Descriptor{
			"bsc": {Name: "bsc", Commands: map[string]*plugin.CommandDescriptor{
				"wrap-bnb": {Name: "wrap-bnb"},
			}},
		}
		c := buildTestCatalog(t, registry)

		assert.NoError(t, c.Validate("bsc_wrap-bnb", map[string]any{"amount": "1000000000000000000"}))
		assert.NoError(t, c.Validate("bsc_wrap-bnb", map[string]any{"amount": 0.5}))
		assert.Error(t, c.Validate("bsc_wrap-bnb", map[string]any{"amount": true}))
	})
}
