package plugin

import "time"

// Descriptor represents one discovered plugin. Name and EntryPath are fixed
// at discovery time; Commands is populated once during scan and never
// refreshed without a restart.
type Descriptor struct {
	Name      string
	EntryPath string
	Commands  map[string]*CommandDescriptor
}

// CommandDescriptor represents one subcommand of a plugin CLI
type CommandDescriptor struct {
	Name        string
	Description string
	// MutatesEnv marks commands that rewrite persisted secrets; a successful
	// call triggers an env reload in the dispatcher
	MutatesEnv bool
}

// Manifest is the optional plugin.json declaration. When present it replaces
// help-text extraction for that plugin.
type Manifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Commands    []ManifestCommand `json:"commands"`
}

// ManifestCommand declares one callable command
type ManifestCommand struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MutatesEnv  bool   `json:"mutatesEnv,omitempty"`
}

// ScanConfig configures plugin discovery
type ScanConfig struct {
	// RootDir is the plugins root directory
	RootDir string

	// Disabled plugins are skipped entirely and contribute no tools
	Disabled map[string]bool

	// Interpreter runs plugin entry points
	Interpreter string

	// EntryFile is the recognized entry-point file name (e.g. cli.py)
	EntryFile string

	// HelpTimeout bounds the --help subprocess per plugin
	HelpTimeout time.Duration
}

// ManifestFile is the per-plugin declaration file name
const ManifestFile = "plugin.json"
