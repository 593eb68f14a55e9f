package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Precache the configured generation into the persistent stores and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, opts)
		},
	}
}

func runInstall(ctx context.Context, cmd *cobra.Command, opts *globalOptions) error {
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

	if err := root.Registration.Register(ctx, root.Config.Generation()); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(root.Registration.Status())
}
