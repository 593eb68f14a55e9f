// Package main is the entry point for the offline-cache proxy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:   "offline-cache",
		Short: "Offline cache proxy",
		Long: `Offline cache proxy - keeps a versioned copy of a site available offline.

The proxy precaches a manifest of URLs into a versioned namespace, serves
same-origin requests cache-first and cross-origin requests network-first,
and relays sync and push notifications to connected pages.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $OFFLINE_CACHE_CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "development logging")

	rootCmd.AddCommand(newServeCmd(&opts))
	rootCmd.AddCommand(newInstallCmd(&opts))
	rootCmd.AddCommand(newTokenCmd(&opts))
	rootCmd.AddCommand(newWatchCmd(&opts))
	return rootCmd
}

type globalOptions struct {
	configPath string
	verbose    bool
}
