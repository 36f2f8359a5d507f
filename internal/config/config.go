package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the main toolgate configuration
type Config struct {
	// Server holds gateway transport settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Plugins holds plugin discovery and dispatch settings
	Plugins PluginsConfig `json:"plugins" mapstructure:"plugins"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// EnvFile is the dotenv file loaded at startup and reloaded after
	// env-mutating tool calls
	EnvFile string `json:"env_file" mapstructure:"env_file"`
}

// ServerConfig holds gateway server configuration
type ServerConfig struct {
	Host          string        `json:"host" mapstructure:"host"`
	Port          int           `json:"port" mapstructure:"port"`
	AllowExternal bool          `json:"allow_external" mapstructure:"allow_external"`
	SharedSecret  string        `json:"shared_secret" mapstructure:"shared_secret"`
	TickInterval  time.Duration `json:"tick_interval" mapstructure:"tick_interval"`

	// RequestsPerMinute and MaxConcurrent bound each remote client
	RequestsPerMinute int `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxConcurrent     int `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// PluginsConfig holds plugin discovery and dispatch configuration
type PluginsConfig struct {
	// Dir is the plugins root directory
	Dir string `json:"dir" mapstructure:"dir"`

	// Interpreter runs plugin entry points (python3, sh, ...)
	Interpreter string `json:"interpreter" mapstructure:"interpreter"`

	// EntryFile is the recognized entry-point file per plugin directory
	EntryFile string `json:"entry_file" mapstructure:"entry_file"`

	// Disabled is a comma-separated deny-list of plugin names
	Disabled string `json:"disabled" mapstructure:"disabled"`

	// HelpTimeout bounds the --help subprocess during discovery
	HelpTimeout time.Duration `json:"help_timeout" mapstructure:"help_timeout"`

	// CallTimeout bounds dispatched tool subprocesses
	CallTimeout time.Duration `json:"call_timeout" mapstructure:"call_timeout"`

	// ReloadEnvTools names tools whose success triggers an env reload
	ReloadEnvTools []string `json:"reload_env_tools" mapstructure:"reload_env_tools"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`

	// MaxSize (MB) and MaxAge (days) bound the log file through rotation
	MaxSize  int  `json:"max_size" mapstructure:"max_size"`
	MaxAge   int  `json:"max_age" mapstructure:"max_age"`
	Compress bool `json:"compress" mapstructure:"compress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8000,
			TickInterval:      30 * time.Second,
			RequestsPerMinute: 60,
			MaxConcurrent:     10,
		},
		Plugins: PluginsConfig{
			Interpreter: "python3",
			EntryFile:   "cli.py",
			HelpTimeout: 10 * time.Second,
			CallTimeout: 60 * time.Second,
			ReloadEnvTools: []string{
				"signer_create-wallet",
				"signer_import-private-key",
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Plugins.Interpreter == "" {
		return fmt.Errorf("plugins interpreter cannot be empty")
	}
	if c.Plugins.EntryFile == "" {
		return fmt.Errorf("plugins entry file cannot be empty")
	}
	if c.Plugins.HelpTimeout <= 0 {
		return fmt.Errorf("plugins help timeout must be positive")
	}
	if c.Plugins.CallTimeout <= 0 {
		return fmt.Errorf("plugins call timeout must be positive")
	}
	return nil
}

// DisabledSet parses the comma-separated deny-list into a set
func (p PluginsConfig) DisabledSet() map[string]bool {
	set := make(map[string]bool)
	for _, name := range strings.Split(p.Disabled, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = true
		}
	}
	return set
}

// ReloadEnvToolSet returns the env-reload tool names as a set
func (p PluginsConfig) ReloadEnvToolSet() map[string]bool {
	set := make(map[string]bool, len(p.ReloadEnvTools))
	for _, name := range p.ReloadEnvTools {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = true
		}
	}
	return set
}

// BindAddr returns the listen address, honoring AllowExternal
func (s ServerConfig) BindAddr() string {
	host := s.Host
	if s.AllowExternal {
		host = "0.0.0.0"
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}
