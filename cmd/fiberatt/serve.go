package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fiberatt/internal/app"
	"fiberatt/internal/config"
	"fiberatt/internal/logger"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP fitting API",
	Long:  `The 'serve' command exposes POST /api/fits and the run history over HTTP. When started from a config file, log level changes in that file are applied without restart.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer a.Close()

	var watcher *config.Watcher
	if path != "" {
		watcher, err = config.Watch(path, app.ApplyConfig, func(err error) {
			logger.Warnf("%v", err)
		})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Serve(ctx, watcher); err != nil {
		return fmt.Errorf("运行失败: %w", err)
	}
	return nil
}
