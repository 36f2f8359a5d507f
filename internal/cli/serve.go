package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/internal/logger"
	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/catalog"
	"github.com/harun/toolgate/pkg/dispatch"
	"github.com/harun/toolgate/pkg/gateway"
	"github.com/harun/toolgate/pkg/plugin"
)

var (
	serveHost          string
	servePort          int
	serveAllowExternal bool
	servePluginsDir    string
	serveEnvFile       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tool-dispatch gateway",
	Long: `Discover plugins, build the tool catalogue, and serve tool calls until
interrupted. Binds to localhost unless --allow-external is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default 8000)")
	serveCmd.Flags().BoolVar(&serveAllowExternal, "allow-external", false, "bind 0.0.0.0 to accept external connections")
	serveCmd.Flags().StringVar(&servePluginsDir, "plugins-dir", "", "plugins root directory")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", "", "dotenv file loaded into the process environment")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	logg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Close()
	log := logg.GetZerolog()

	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if cfg.Server.AllowExternal {
		log.Warn().Msg("Accepting external connections, binding 0.0.0.0")
	}

	m := metrics.New()

	registry := plugin.NewDiscovery(log, m).Scan(cmd.Context(), plugin.ScanConfig{
		RootDir:     cfg.Plugins.Dir,
		Disabled:    cfg.Plugins.DisabledSet(),
		Interpreter: cfg.Plugins.Interpreter,
		EntryFile:   cfg.Plugins.EntryFile,
		HelpTimeout: cfg.Plugins.HelpTimeout,
	})

	cat := catalog.Build(registry, log, m)
	log.Info().
		Int("plugins", len(registry)).
		Int("tools", cat.Len()).
		Msg("Catalogue ready")

	dispatcher := dispatch.New(registry, cat, dispatch.Config{
		Interpreter:    cfg.Plugins.Interpreter,
		CallTimeout:    cfg.Plugins.CallTimeout,
		ReloadEnvTools: cfg.Plugins.ReloadEnvToolSet(),
	}, m, log, func() error {
		return config.ReloadEnvFile(cfg.EnvFile)
	})

	server := gateway.NewServer(gateway.Config{
		Addr:              cfg.Server.BindAddr(),
		SharedSecret:      cfg.Server.SharedSecret,
		TickInterval:      cfg.Server.TickInterval,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		MaxConcurrent:     cfg.Server.MaxConcurrent,
	}, cat, dispatcher, m, log)

	if err := server.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}

// applyServeFlags lets explicit flags override file and env configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("allow-external") {
		cfg.Server.AllowExternal = serveAllowExternal
	}
	if cmd.Flags().Changed("plugins-dir") {
		cfg.Plugins.Dir = servePluginsDir
	}
	if cmd.Flags().Changed("env-file") {
		cfg.EnvFile = serveEnvFile
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}
