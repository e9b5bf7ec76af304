// Package cli defines the tripmate command line: serve, migrate, useradd and version.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devinvista/Trip-sub001/internal/config"
	"github.com/devinvista/Trip-sub001/pkg/logging"
)

var version = "dev" // set via ldflags at build time

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tripmate",
		Short: "Trip planning backend with live co-editing and shared expenses",
		Long: `tripmate serves the trip planning API: trips and their participants,
a shared expense ledger with balances, and a websocket hub for editing a
trip together in real time.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogging()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML, YAML or JSON config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newUserAddCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging applies --log-level, falling back to LOG_LEVEL.
func (o *rootOptions) setupLogging() error {
	if o.logLevel == "" {
		logging.Setup()
		return nil
	}
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logging.SetupWithLevel(level)
	return nil
}

// readConfig loads the config file and env overrides without validating.
func (o *rootOptions) readConfig() (*config.Config, error) {
	cfg, err := config.Read(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}
