package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/config"
	"github.com/Sabith-07/WISE/internal/logging"
)

var (
	configPath string
	port       int
	devMode    bool
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wise-server",
	Short: "WISE personal safety companion service",
	Long: `wise-server hosts the SOS trigger, the voice keyword listener, live
location sharing, guardians, the fake call generator and the safety score.

Connected clients (the browser page or wise-tui) receive state and device
commands over /ws.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Development || devMode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.Flags().IntVar(&port, "port", 0, "Override server port")
	rootCmd.Flags().BoolVar(&devMode, "dev", false, "Development mode (console logs, serve static_dir)")

	rootCmd.AddCommand(notifyCmd, scoreCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if devMode {
		cfg.Server.Dev = true
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
