package main

import (
	"fmt"
	"os"
	"time"

	"battlelog/internal/config"
	"battlelog/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "battlelog",
	Short: "battlelog - track the battles of a playthrough",
	Long: `battlelog records the battles fought during a game playthrough:
who you fought, where, in which format, and whether you lost.

Records live in a local SQLite database or behind a "battlelog serve"
instance, depending on gateway.mode in config.yaml.

Run without arguments to start the interactive interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// persistentPreRunE loads config and logging before every command. It is
// assigned in init because it refers to rootCmd.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.DataDir, cfg.Logging.Settings()); err != nil {
		return fmt.Errorf("failed to initialize file logging: %w", err)
	}
	logging.Boot("Command %q starting (gateway mode %s)", cmd.CommandPath(), cfg.Gateway.Mode)

	// The interactive interface owns the terminal.
	if cmd == rootCmd || cmd == tuiCmd {
		logger = zap.NewNop()
		return nil
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.DisableStacktrace = true
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRunE

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .battlelog/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout for non-interactive commands")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(battlesCmd)
	rootCmd.AddCommand(playthroughsCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(trainersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
