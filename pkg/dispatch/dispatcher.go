// Package dispatch turns tool calls into plugin subprocess invocations.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/catalog"
	"github.com/harun/toolgate/pkg/plugin"
)

// reservedArgKeys are transport-level keys stripped from arguments before
// validation and flag conversion.
var reservedArgKeys = map[string]bool{
	"request_heartbeat": true,
}

// Config holds the dispatcher's runtime knobs.
type Config struct {
	Interpreter    string
	CallTimeout    time.Duration
	ReloadEnvTools map[string]bool
}

// Result is the outcome of one subprocess invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Succeeded reports whether the subprocess exited cleanly.
func (r *Result) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Text returns the payload handed back to the caller: stdout on success,
// the most informative failure channel otherwise. Whitespace is trimmed so
// a trailing newline from the plugin never leaks into the result.
func (r *Result) Text() string {
	if r.Succeeded() {
		return strings.TrimSpace(r.Stdout)
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Stdout); s != "" {
		return s
	}
	return fmt.Sprintf("Command failed with return code %d", r.ExitCode)
}

// Dispatcher resolves tool names back to plugin commands and runs them.
type Dispatcher struct {
	registry  map[string]*plugin.Descriptor
	catalog   *catalog.Catalog
	cfg       Config
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	reloadEnv func() error
}

// New creates a dispatcher. reloadEnv may be nil when no secrets file is
// configured; it is invoked after successful calls to tools that mutate the
// process environment.
func New(registry map[string]*plugin.Descriptor, cat *catalog.Catalog, cfg Config, m *metrics.Metrics, logger zerolog.Logger, reloadEnv func() error) *Dispatcher {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Dispatcher{
		registry:  registry,
		catalog:   cat,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With().Str("component", "dispatch").Logger(),
		reloadEnv: reloadEnv,
	}
}

// Call executes the named tool with the given arguments. Resolution and
// validation failures return an error without spawning anything; once the
// subprocess runs, the outcome comes back as a Result even on non-zero exit.
func (d *Dispatcher) Call(ctx context.Context, toolName string, args map[string]any) (*Result, error) {
	d.metrics.IncToolCallsTotal()

	pluginName, commandName, ok := splitToolName(toolName)
	if !ok {
		d.metrics.IncToolCallsError()
		return nil, fmt.Errorf("%w: %q must look like plugin_command", ErrMalformedToolName, toolName)
	}

	desc, ok := d.registry[pluginName]
	if !ok {
		d.metrics.IncToolCallsError()
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, pluginName)
	}

	cleaned := stripReserved(args)

	if err := d.catalog.Validate(toolName, cleaned); err != nil {
		d.metrics.IncToolCallsError()
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	argv := buildArgv(desc.EntryPath, commandName, cleaned)

	d.logger.Debug().
		Str("tool", toolName).
		Strs("argv", argv).
		Msg("Spawning plugin subprocess")

	result := d.run(argv)

	if result.TimedOut {
		d.metrics.IncToolCallsError()
		d.logger.Warn().
			Str("tool", toolName).
			Dur("duration", result.Duration).
			Msg("Tool call timed out")
		return result, fmt.Errorf("%w after %s: %s", ErrTimeout, d.cfg.CallTimeout, toolName)
	}

	if result.Succeeded() {
		d.metrics.IncToolCallsSuccess()
		d.maybeReloadEnv(toolName)
	} else {
		d.metrics.IncToolCallsError()
		d.logger.Warn().
			Str("tool", toolName).
			Int("exit_code", result.ExitCode).
			Msg("Tool call failed")
	}

	return result, nil
}

// run spawns the subprocess against a fresh deadline rather than the
// caller's context, so a disconnecting caller cannot orphan a half-finished
// side effect: the process always runs to completion or to the timeout.
func (d *Dispatcher) run(argv []string) *Result {
	execCtx, cancel := context.WithTimeout(context.Background(), d.cfg.CallTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, d.cfg.Interpreter, argv...)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
	}

	return result
}

// maybeReloadEnv refreshes the process environment after tools that write
// new secrets, so subsequent calls in the same process see them.
func (d *Dispatcher) maybeReloadEnv(toolName string) {
	if d.reloadEnv == nil {
		return
	}

	mutates := d.cfg.ReloadEnvTools[toolName]
	if !mutates {
		if tool, ok := d.catalog.Get(toolName); ok {
			mutates = tool.MutatesEnv
		}
	}
	if !mutates {
		return
	}

	if err := d.reloadEnv(); err != nil {
		d.logger.Warn().Err(err).Str("tool", toolName).Msg("Failed to reload environment")
		return
	}
	d.logger.Info().Str("tool", toolName).Msg("Reloaded environment after mutating tool")
}

// splitToolName breaks plugin_command on the first underscore. Command names
// may themselves contain underscores; plugin names may not.
func splitToolName(toolName string) (pluginName, commandName string, ok bool) {
	parts := strings.SplitN(toolName, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// stripReserved copies args without transport-level keys.
func stripReserved(args map[string]any) map[string]any {
	cleaned := make(map[string]any, len(args))
	for k, v := range args {
		if reservedArgKeys[k] {
			continue
		}
		cleaned[k] = v
	}
	return cleaned
}

// buildArgv converts arguments into CLI flags in sorted key order so repeated
// calls produce identical command lines.
func buildArgv(entryPath, commandName string, args map[string]any) []string {
	argv := []string{entryPath, commandName}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		flag := "--" + flagName(k)
		switch v := args[k].(type) {
		case bool:
			if v {
				argv = append(argv, flag)
			}
		case string:
			argv = append(argv, flag, v)
		case float64:
			argv = append(argv, flag, strconv.FormatFloat(v, 'f', -1, 64))
		case nil:
			// absent value carries no flag
		default:
			argv = append(argv, flag, fmt.Sprintf("%v", v))
		}
	}

	return argv
}

// flagName renders an argument key as a CLI flag name: camelCase keys become
// kebab-case, keys already in kebab-case pass through unchanged.
func flagName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
