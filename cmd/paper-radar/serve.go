// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/report"
	"github.com/pdiddy/paper-radar/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored reports over HTTP",
	Long: `Serve exposes the report store through a read-only JSON API:

  GET /api/health         liveness check
  GET /api/dates          dates with a stored report, most recent first
  GET /api/report?date=D  report for date D (latest when date is omitted)

The server never runs the pipeline; use the run subcommand for that.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening report store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.New(cfg.Server, store, log).ListenAndServe(ctx)
}
