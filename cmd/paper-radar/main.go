// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-radar CLI.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/config"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-radar CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-radar",
	Short: "Daily academic paper tracking and analysis",
	Long: `paper-radar fetches new papers from arXiv and journal RSS feeds, filters
them against configured research keywords with a fast language model, analyzes
matched papers in depth with a capable multimodal model, and aggregates the
results into a daily report.

The run subcommand executes one daily pipeline pass; serve exposes stored
reports over a read-only HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-radar.yaml or ~/.config/paper-radar/paper-radar.yaml)")
}

// setup loads configuration and builds the logger shared by the run,
// serve, and history subcommands.
func setup() (*config.Config, zerolog.Logger, error) {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgFile, loadedSecrets)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Logging), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
