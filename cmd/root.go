// Package cmd implements the CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/mkravets/shipmate/internal/config"
	"github.com/mkravets/shipmate/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile       string
	verbose       bool
	cfg           *config.Config
	errConfigLoad error
)

var rootCmd = &cobra.Command{
	Use:   "shipmate",
	Short: "Telegram bot for managing Docker containers on a remote host",
	Long: `Shipmate is a Telegram bot that manages Docker containers on a remote
host over SSH. Interaction is button-driven: no commands to memorize.

It features:
  - Container listing with start/stop/restart/logs actions
  - Image listing and per-container resource stats
  - SSH (password or key) and local execution transports
  - Allow-list based access control
  - Operator alerts via Shoutrrr when the remote host is unreachable`,
	Version: version.GetFullVersion(),
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		skipConfig := cmd.Name() == "help" || cmd.Name() == "version"
		if skipConfig {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			// Store the error; commands fail fast in their RunE via requireConfig.
			errConfigLoad = err
			if verbose {
				fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
			}
		}

		if verbose && cfg != nil {
			fmt.Fprintf(os.Stderr, "Loaded configuration from: %s\n", cfg.ConfigFilePath)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// requireConfig returns the loaded configuration or the error that prevented
// loading it. Commands that cannot run without config call this first.
func requireConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	if errConfigLoad != nil {
		return nil, errConfigLoad
	}
	return nil, fmt.Errorf("configuration not loaded")
}

// IsVerbose returns whether verbose mode is enabled via the -v flag.
func IsVerbose() bool {
	return verbose
}
