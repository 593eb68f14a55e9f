package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-offline-cache/internal/auth"
	"go-offline-cache/internal/config"
)

var errNoPushSecret = errors.New("push secret is not configured")

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the push endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := pushSecret(opts)
			if err != nil {
				return err
			}
			token, expiresAt, err := auth.Generate(secret, auth.PushScope, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expiresAt.UTC().Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// pushSecret reads the push secret from the environment, then the config file
func pushSecret(opts *globalOptions) (string, error) {
	overrides, err := config.LoadEnv()
	if err != nil {
		return "", err
	}
	if overrides.PushSecret != "" {
		return overrides.PushSecret, nil
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = overrides.ConfigFile
	}
	cfg, err := config.LoadConfig(configPath, overrides, zap.NewNop())
	if err != nil {
		return "", err
	}
	if cfg.Push.JWTSecret == "" {
		return "", errNoPushSecret
	}
	return cfg.Push.JWTSecret, nil
}
