package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/shadow/internal/bridge"
	"github.com/v0xg/shadow/internal/engine"
	"github.com/v0xg/shadow/internal/history"
	"github.com/v0xg/shadow/internal/render"
)

var (
	serveBrowserBin string
	serveHeadful    bool
	serveProfile    string
	serveNoHistory  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Shadow Engine and its loopback bridge",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBrowserBin, "browser", "", "Chrome/Chromium binary (default: found on PATH or downloaded)")
	serveCmd.Flags().BoolVar(&serveHeadful, "headful", false, "show the browser window")
	serveCmd.Flags().StringVar(&serveProfile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "do not record visited pages")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := callContext(cmd)
	defer stop()

	opts := cfg.RenderOptions()
	if serveBrowserBin != "" {
		opts.Bin = serveBrowserBin
	}
	if serveHeadful {
		opts.Headless = false
	}
	if serveProfile != "" {
		opts.ProfileDir = serveProfile
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithAliases(cfg.Aliases),
		engine.WithCompression(cfg.CompressionOptions()),
		engine.WithActionSettle(cfg.GetActionSettle()),
	}

	serverOpts := bridge.Options{
		Addr:            cfg.Bridge.Addr,
		SearchEngine:    cfg.Search.Engine,
		Aliases:         cfg.Aliases,
		ScreenshotWidth: cfg.Bridge.ScreenshotWidth,
		Logger:          logger,
	}

	if cfg.History.Enabled && !serveNoHistory {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		engineOpts = append(engineOpts, engine.WithRecorder(store))
		serverOpts.History = store
	}

	eng := engine.New(render.NewSession(opts, logger), engineOpts...)
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("browser close", zap.Error(err))
		}
	}()

	srv, err := bridge.NewServer(eng, serverOpts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Shadow Engine bridge active on http://%s\n", srv.Addr())
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
