package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AnandSundar/go-demoproxy/internal/server"
)

var (
	listenAddr string
	backendURL string
	demoMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides listen_addr)")
	serveCmd.Flags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides backend_url)")
	serveCmd.Flags().BoolVar(&demoMode, "demo", false, "Answer backend failures from the mock table")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr = listenAddr
	}
	if flags.Changed("backend") {
		cfg.BackendURL = backendURL
	}
	if flags.Changed("demo") {
		cfg.DemoMode = demoMode
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
