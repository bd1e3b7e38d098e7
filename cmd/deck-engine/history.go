package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/history"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past deck runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent deck runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), limit)
		if err != nil {
			return err
		}
		history.PrintRuns(os.Stdout, runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the per-page outcomes of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}

		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		pages, err := store.RunPages(context.Background(), runID)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Printf("no pages recorded for run %d\n", runID)
			return nil
		}
		for _, p := range pages {
			line := fmt.Sprintf("%-20s  %-9s  %d attempt(s)  %s", p.Filename, p.Status, p.Attempts, p.Duration)
			if p.Error != "" {
				line += "  " + p.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	return history.Open(types.HistoryConfig{OutputDir: outputDir})
}

func init() {
	historyCmd.PersistentFlags().String("output-dir", "output", "run artifact directory (contains index/)")
	historyListCmd.Flags().Int("limit", 20, "maximum runs to list")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	rootCmd.AddCommand(historyCmd)
}
