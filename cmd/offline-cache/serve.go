package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Install the configured generation and serve the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	root, err := NewCompositionRoot(opts.configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := root.Cleanup(); err != nil {
			logger.Error("Failed to cleanup resources", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Requests pass through to the network until a generation is in control
	gen := root.Config.Generation()
	if err := root.Registration.Register(ctx, gen); err != nil {
		logger.Error("Initial install failed, serving from network until the next update",
			zap.String("namespace", gen.Namespace()),
			zap.Error(err))
	}

	root.Updater.Start()
	defer root.Updater.Stop()

	group, groupCtx := errgroup.WithContext(ctx)
	serverCfg := root.Config.Server
	if serverCfg.ListenAddr != "" {
		group.Go(func() error {
			return root.HTTPServer.Start(serverCfg.ListenAddr)
		})
	}
	if serverCfg.SocketPath != "" {
		group.Go(func() error {
			return root.HTTPServer.StartUnixSocket(serverCfg.SocketPath)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := root.HTTPServer.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
