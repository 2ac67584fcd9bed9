// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clean the paper history",
	Long: `History shows how many papers the deduplication history holds. With
--cleanup, entries older than the configured retention are removed.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Bool("cleanup", false, "remove entries older than the retention window")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	store, err := report.NewStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening report store: %w", err)
	}
	defer store.Close()

	if cleanup, _ := cmd.Flags().GetBool("cleanup"); cleanup {
		n, err := store.Cleanup(cfg.Store.HistoryRetentionDays, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d entries older than %d days\n", n, cfg.Store.HistoryRetentionDays)
	}

	count, err := store.HistoryCount()
	if err != nil {
		return err
	}
	fmt.Printf("History holds %d papers\n", count)
	return nil
}
