package plugin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/harun/toolgate/internal/metrics"
)

// Discovery scans the plugins root for plugin directories and populates
// their command catalogues
type Discovery struct {
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	extractor *CommandExtractor
	manifests *ManifestLoader
}

// NewDiscovery creates a new plugin discovery instance
func NewDiscovery(logger zerolog.Logger, m *metrics.Metrics) *Discovery {
	return &Discovery{
		logger:    logger.With().Str("component", "plugin-discovery").Logger(),
		metrics:   m,
		extractor: NewCommandExtractor(logger),
		manifests: NewManifestLoader(logger),
	}
}

// Scan discovers plugins and populates each descriptor's command map. A
// plugin whose manifest or help output cannot be read contributes zero
// commands but does not abort discovery of others.
func (d *Discovery) Scan(ctx context.Context, cfg ScanConfig) map[string]*Descriptor {
	registry := d.Discover(cfg)

	for name, desc := range registry {
		commands := d.loadCommands(ctx, cfg, desc)
		for _, cmd := range commands {
			if _, exists := desc.Commands[cmd.Name]; exists {
				continue
			}
			desc.Commands[cmd.Name] = cmd
		}
		d.logger.Info().
			Str("plugin", name).
			Int("commands", len(desc.Commands)).
			Msg("Plugin scanned")
	}

	return registry
}

// Discover scans the root directory for subdirectories containing the
// entry-point file, honoring the deny-list. A missing root is a warning,
// not a fatal error.
func (d *Discovery) Discover(cfg ScanConfig) map[string]*Descriptor {
	registry := make(map[string]*Descriptor)

	info, err := os.Stat(cfg.RootDir)
	if err != nil || !info.IsDir() {
		d.logger.Warn().Str("dir", cfg.RootDir).Msg("Plugins directory not found")
		d.metrics.SetPluginsDiscovered(0)
		return registry
	}

	entries, err := os.ReadDir(cfg.RootDir)
	if err != nil {
		d.logger.Warn().Err(err).Str("dir", cfg.RootDir).Msg("Failed to read plugins directory")
		d.metrics.SetPluginsDiscovered(0)
		return registry
	}

	if len(cfg.Disabled) > 0 {
		names := make([]string, 0, len(cfg.Disabled))
		for name := range cfg.Disabled {
			names = append(names, name)
		}
		d.logger.Info().Strs("plugins", names).Msg("Disabled plugins")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if cfg.Disabled[name] {
			d.logger.Info().Str("plugin", name).Msg("Skipping disabled plugin")
			continue
		}

		entryPath := filepath.Join(cfg.RootDir, name, cfg.EntryFile)
		if _, err := os.Stat(entryPath); err != nil {
			// No entry point, not a plugin
			continue
		}

		registry[name] = &Descriptor{
			Name:      name,
			EntryPath: entryPath,
			Commands:  make(map[string]*CommandDescriptor),
		}
		d.logger.Info().Str("plugin", name).Msg("Discovered plugin")
	}

	d.metrics.SetPluginsDiscovered(len(registry))
	d.logger.Info().Int("count", len(registry)).Msg("Plugin discovery completed")

	return registry
}

// loadCommands prefers a plugin.json manifest and falls back to help-text
// extraction for plugins that do not ship one
func (d *Discovery) loadCommands(ctx context.Context, cfg ScanConfig, desc *Descriptor) []*CommandDescriptor {
	manifestPath := filepath.Join(filepath.Dir(desc.EntryPath), ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := d.manifests.Load(manifestPath)
		if err != nil {
			d.logger.Error().Err(err).Str("plugin", desc.Name).Msg("Invalid plugin manifest")
			return nil
		}
		if manifest.Name != desc.Name {
			d.logger.Error().
				Str("plugin", desc.Name).
				Str("manifest_name", manifest.Name).
				Msg("Manifest name does not match plugin directory")
			return nil
		}
		commands := make([]*CommandDescriptor, 0, len(manifest.Commands))
		for _, mc := range manifest.Commands {
			commands = append(commands, &CommandDescriptor{
				Name:        mc.Name,
				Description: mc.Description,
				MutatesEnv:  mc.MutatesEnv,
			})
		}
		return commands
	}

	names := d.extractor.Extract(ctx, ExtractConfig{
		Interpreter: cfg.Interpreter,
		EntryPath:   desc.EntryPath,
		Timeout:     cfg.HelpTimeout,
	})
	commands := make([]*CommandDescriptor, 0, len(names))
	for _, name := range names {
		commands = append(commands, &CommandDescriptor{Name: name})
	}
	return commands
}
