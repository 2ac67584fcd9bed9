// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/pipeline"
	"github.com/pdiddy/paper-radar/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one daily pipeline pass",
	Long: `Run fetches new papers from every configured source, deduplicates them,
filters against the configured keywords, analyzes matched papers, and writes
the daily report to the store. Re-running for the same date replaces that
date's report.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("date", "", "report date (YYYY-MM-DD, default: today UTC)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	date, _ := cmd.Flags().GetString("date")

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening report store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := pipeline.New(cfg, store, log).Run(ctx, date)
	if err != nil {
		return err
	}

	fmt.Printf("Report for %s: %d papers, %d matched, %d analyzed\n",
		rep.Date, rep.TotalPapers, rep.MatchedPapers, rep.AnalyzedPapers)
	return nil
}
