package plugin

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// commandsMarker opens the commands section of a plugin's help output and
// examplesMarker closes it. This is a convention every plugin CLI honors;
// plugins that ship a manifest bypass it entirely.
const (
	commandsMarker = "Available commands:"
	examplesMarker = "Examples"
)

// reservedHelpWords are argparse header tokens that are never command names
var reservedHelpWords = map[string]bool{
	"usage:":    true,
	"options:":  true,
	"Available": true,
	"Examples:": true,
}

// CommandExtractor harvests command names from a plugin's --help output
type CommandExtractor struct {
	logger zerolog.Logger
}

// ExtractConfig configures one extraction run
type ExtractConfig struct {
	Interpreter string
	EntryPath   string
	Timeout     time.Duration
}

// NewCommandExtractor creates a new command extractor
func NewCommandExtractor(logger zerolog.Logger) *CommandExtractor {
	return &CommandExtractor{
		logger: logger.With().Str("component", "command-extractor").Logger(),
	}
}

// Extract invokes the plugin entry point with --help and parses out its
// command names. Any failure (timeout, non-zero exit, spawn error) yields
// zero commands for this plugin; discovery of others is unaffected.
func (e *CommandExtractor) Extract(ctx context.Context, cfg ExtractConfig) []string {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	helpCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(helpCtx, cfg.Interpreter, cfg.EntryPath, "--help")
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if helpCtx.Err() == context.DeadlineExceeded {
			e.logger.Error().
				Str("entry", cfg.EntryPath).
				Dur("timeout", timeout).
				Msg("Help command timed out")
		} else {
			e.logger.Error().
				Err(err).
				Str("entry", cfg.EntryPath).
				Str("stderr", strings.TrimSpace(stderr.String())).
				Msg("Help command failed")
		}
		return nil
	}

	return ParseHelpCommands(stdout.String())
}

// ParseHelpCommands parses command names from conventional help text. The
// scan enters the commands section at the marker line, takes the first token
// of each indented line, and leaves the section on a blank line or the
// examples marker.
func ParseHelpCommands(help string) []string {
	var commands []string
	inSection := false

	for _, line := range strings.Split(help, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, commandsMarker) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, examplesMarker) {
			inSection = false
			continue
		}

		if !strings.HasPrefix(line, "  ") {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) == 0 || reservedHelpWords[fields[0]] {
			continue
		}
		commands = append(commands, fields[0])
	}

	return commands
}
