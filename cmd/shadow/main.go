package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/v0xg/shadow/internal/bridge"
	"github.com/v0xg/shadow/internal/config"
)

var (
	cfgPath    string
	bridgeAddr string
	timeout    time.Duration
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shadow",
	Short: "Headless browsing for agents",
	Long: `shadow drives a headless browser and hands out compact semantic page
summaries over a loopback bridge, so an agent can browse without a window.

Start the engine with "shadow serve", then from another terminal:
  shadow search "example.com"
  shadow action click --id buy-now`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if bridgeAddr != "" {
			cfg.Bridge.Addr = bridgeAddr
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
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
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.shadow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&bridgeAddr, "addr", "", "bridge address (default from config, 127.0.0.1:3030)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for a bridge call")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, searchCmd, navigateCmd, actionCmd, statusCmd,
		historyCmd, screenshotCmd, askCmd, installCmd)
}

func newClient() *bridge.Client {
	return bridge.NewClient(cfg.Bridge.Addr, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
