package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/catalog"
	"github.com/harun/toolgate/pkg/plugin"
)

// writeStub creates a shell script standing in for a plugin entry point.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.py")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

type fixture struct {
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	reloads    *int
}

func newFixture(t *testing.T, registry map[string]*plugin.Descriptor, cfg Config) *fixture {
	t.Helper()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	m := metrics.New()
	cat := catalog.Build(registry, logger, m)

	reloads := 0
	reloadEnv := func() error {
		reloads++
		return nil
	}

	cfg.Interpreter = "sh"
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 5 * time.Second
	}

	return &fixture{
		dispatcher: New(registry, cat, cfg, m, logger, reloadEnv),
		metrics:    m,
		reloads:    &reloads,
	}
}

func singleCommandRegistry(pluginName, commandName, entryPath string) map[string]*plugin.Descriptor {
	return map[string]*plugin.Descriptor{
		pluginName: {
			Name:      pluginName,
			EntryPath: entryPath,
			Commands: map[string]*plugin.CommandDescriptor{
				commandName: {Name: commandName},
			},
		},
	}
}

func TestDispatcher_Call(t *testing.T) {
	t.Run("passes command and flags to the subprocess", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", map[string]any{
			"city": "Jakarta",
			"days": float64(3),
		})
		require.NoError(t, err)
		assert.True(t, result.Succeeded())
		assert.Equal(t, "run --city Jakarta --days 3\n", result.Stdout)
	})

	t.Run("camelCase keys become kebab-case flags", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", map[string]any{
			"symbol":       "BTC",
			"broadcast":    true,
			"gasPriceGwei": float64(5),
		})
		require.NoError(t, err)
		assert.Equal(t, "run --broadcast --gas-price-gwei 5 --symbol BTC\n", result.Stdout)
	})

	t.Run("flag order is deterministic", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", map[string]any{
			"zeta": "z", "alpha": "a", "mid": "m",
		})
		require.NoError(t, err)
		assert.Equal(t, "run --alpha a --mid m --zeta z\n", result.Stdout)
	})

	t.Run("true boolean becomes a bare flag and false disappears", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", map[string]any{
			"broadcast": true,
			"dry-run":   false,
		})
		require.NoError(t, err)
		assert.Equal(t, "run --broadcast\n", result.Stdout)
	})

	t.Run("float arguments render without exponent", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", map[string]any{
			"amount": float64(1000000000000000000),
		})
		require.NoError(t, err)
		assert.Equal(t, "run --amount 1000000000000000000\n", result.Stdout)
	})

	t.Run("reserved heartbeat key is stripped", func(t *testing.T) {
		entry := writeStub(t, `echo "$@"`)
		f := newFixture(t, singleCommandRegistry("signer", "create-wallet", entry), Config{})

		// create-wallet has a strict schema; the reserved key must be removed
		// before validation or this call would be rejected
		result, err := f.dispatcher.Call(context.Background(), "signer_create-wallet", map[string]any{
			"label":             "main",
			"request_heartbeat": true,
		})
		require.NoError(t, err)
		assert.Equal(t, "create-wallet --label main\n", result.Stdout)
	})

	t.Run("malformed tool name", func(t *testing.T) {
		f := newFixture(t, map[string]*plugin.Descriptor{}, Config{})

		_, err := f.dispatcher.Call(context.Background(), "noseparator", nil)
		assert.ErrorIs(t, err, ErrMalformedToolName)

		_, err = f.dispatcher.Call(context.Background(), "_command", nil)
		assert.ErrorIs(t, err, ErrMalformedToolName)

		snap := f.metrics.Snapshot()
		assert.Equal(t, int64(2), snap.ToolCallsTotal)
		assert.Equal(t, int64(2), snap.ToolCallsError)
	})

	t.Run("unknown plugin", func(t *testing.T) {
		entry := writeStub(t, `echo hi`)
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		_, err := f.dispatcher.Call(context.Background(), "ghost_run", nil)
		assert.ErrorIs(t, err, ErrUnknownPlugin)
	})

	t.Run("schema rejection happens before spawn", func(t *testing.T) {
		marker := filepath.Join(t.TempDir(), "ran")
		entry := writeStub(t, "touch "+marker)
		f := newFixture(t, singleCommandRegistry("signer", "create-wallet", entry), Config{})

		_, err := f.dispatcher.Call(context.Background(), "signer_create-wallet", map[string]any{})
		assert.ErrorIs(t, err, ErrInvalidArguments)
		assert.NoFileExists(t, marker)
		assert.Equal(t, int64(1), f.metrics.Snapshot().ToolCallsError)
	})

	t.Run("non-zero exit surfaces stderr", func(t *testing.T) {
		entry := writeStub(t, "echo boom >&2\nexit 2")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		require.NoError(t, err)
		assert.False(t, result.Succeeded())
		assert.Equal(t, 2, result.ExitCode)
		assert.Equal(t, "boom", result.Text())

		snap := f.metrics.Snapshot()
		assert.Equal(t, int64(1), snap.ToolCallsError)
		assert.Equal(t, int64(0), snap.ToolCallsSuccess)
	})

	t.Run("failure with silent stderr falls back to stdout", func(t *testing.T) {
		entry := writeStub(t, "echo partial output\nexit 1")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		require.NoError(t, err)
		assert.Equal(t, "partial output", result.Text())
	})

	t.Run("failure with no output synthesizes a message", func(t *testing.T) {
		entry := writeStub(t, "exit 7")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		result, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		require.NoError(t, err)
		assert.Equal(t, "Command failed with return code 7", result.Text())
	})

	t.Run("timeout kills the subprocess", func(t *testing.T) {
		entry := writeStub(t, "sleep 30")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{
			CallTimeout: 300 * time.Millisecond,
		})

		start := time.Now()
		result, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		assert.ErrorIs(t, err, ErrTimeout)
		require.NotNil(t, result)
		assert.True(t, result.TimedOut)
		assert.Less(t, time.Since(start), 10*time.Second)
		assert.Equal(t, int64(1), f.metrics.Snapshot().ToolCallsError)
	})

	t.Run("caller cancellation does not kill the subprocess", func(t *testing.T) {
		entry := writeStub(t, "sleep 0.2\necho done")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := f.dispatcher.Call(ctx, "echoer_run", nil)
		require.NoError(t, err)
		assert.True(t, result.Succeeded())
		assert.Equal(t, "done\n", result.Stdout)
	})

	t.Run("success metrics", func(t *testing.T) {
		entry := writeStub(t, "echo ok")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		_, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		require.NoError(t, err)

		snap := f.metrics.Snapshot()
		assert.Equal(t, int64(1), snap.ToolCallsTotal)
		assert.Equal(t, int64(1), snap.ToolCallsSuccess)
		assert.Equal(t, int64(0), snap.ToolCallsError)
	})
}

func TestDispatcher_EnvReload(t *testing.T) {
	t.Run("configured tool triggers reload after success", func(t *testing.T) {
		entry := writeStub(t, "echo ok")
		f := newFixture(t, singleCommandRegistry("signer", "create-wallet", entry), Config{
			ReloadEnvTools: map[string]bool{"signer_create-wallet": true},
		})

		_, err := f.dispatcher.Call(context.Background(), "signer_create-wallet", map[string]any{"label": "main"})
		require.NoError(t, err)
		assert.Equal(t, 1, *f.reloads)
	})

	t.Run("manifest-flagged tool triggers reload", func(t *testing.T) {
		entry := writeStub(t, "echo ok")
		registry := map[string]*plugin.Descriptor{
			"vault": {
				Name:      "vault",
				EntryPath: entry,
				Commands: map[string]*plugin.CommandDescriptor{
					"rotate": {Name: "rotate", MutatesEnv: true},
				},
			},
		}
		f := newFixture(t, registry, Config{})

		_, err := f.dispatcher.Call(context.Background(), "vault_rotate", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, *f.reloads)
	})

	t.Run("failed call does not reload", func(t *testing.T) {
		entry := writeStub(t, "exit 1")
		f := newFixture(t, singleCommandRegistry("signer", "create-wallet", entry), Config{
			ReloadEnvTools: map[string]bool{"signer_create-wallet": true},
		})

		_, err := f.dispatcher.Call(context.Background(), "signer_create-wallet", map[string]any{"label": "main"})
		require.NoError(t, err)
		assert.Equal(t, 0, *f.reloads)
	})

	t.Run("ordinary tool does not reload", func(t *testing.T) {
		entry := writeStub(t, "echo ok")
		f := newFixture(t, singleCommandRegistry("echoer", "run", entry), Config{})

		_, err := f.dispatcher.Call(context.Background(), "echoer_run", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, *f.reloads)
	})
}

func TestSplitToolName(t *testing.T) {
	cases := []struct {
		in      string
		plugin  string
		command string
		ok      bool
	}{
		{"signer_create-wallet", "signer", "create-wallet", true},
		{"bsc_get-token-balance", "bsc", "get-token-balance", true},
		{"a_b_c", "a", "b_c", true},
		{"noseparator", "", "", false},
		{"_leading", "", "", false},
		{"trailing_", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		pluginName, commandName, ok := splitToolName(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.plugin, pluginName, tc.in)
		assert.Equal(t, tc.command, commandName, tc.in)
	}
}
