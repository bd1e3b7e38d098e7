// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/deck"
	"github.com/pdiddy/deck-engine/internal/history"
	"github.com/pdiddy/deck-engine/internal/imagegen"
	"github.com/pdiddy/deck-engine/internal/settings"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var deckCmd = &cobra.Command{
	Use:   "deck [plan.json]",
	Short: "Generate every slide of a plan and assemble the deck PDF",
	Long: `Deck reads a slide plan, generates each page concurrently through the
image API, and combines the results into a PDF. Slides whose output file
already exists are skipped, so an interrupted run can be resumed by
running deck again. A failed page is reported and omitted from the PDF;
the run exits non-zero if any page failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeck,
}

func init() {
	deckCmd.Flags().StringP("output", "o", "output/deck.pdf", "output PDF path")
	deckCmd.Flags().String("slides-dir", "slides", "directory slide images are written to")
	deckCmd.Flags().String("base-dir", "", "project root containing settings/ (default: the plan's directory)")
	deckCmd.Flags().Int("workers", 0, "concurrent generations (default 3)")
	deckCmd.Flags().Int("retries", 0, "per-page generation attempt budget (default 3)")
	deckCmd.Flags().Float64("dpi", 0, "PDF page resolution (default 150)")
	deckCmd.Flags().Duration("interval", time.Second, "minimum spacing between generation calls (0 disables)")
	deckCmd.Flags().Int("ref-max-size", 0, "longest side of attached reference images (default 512)")

	rootCmd.AddCommand(deckCmd)
}

func runDeck(cmd *cobra.Command, args []string) error {
	planPath := args[0]

	outputPDF, _ := cmd.Flags().GetString("output")
	slidesDir, _ := cmd.Flags().GetString("slides-dir")
	baseDir, _ := cmd.Flags().GetString("base-dir")
	workers, _ := cmd.Flags().GetInt("workers")
	dpi, _ := cmd.Flags().GetFloat64("dpi")
	interval, _ := cmd.Flags().GetDuration("interval")
	refMaxSize, _ := cmd.Flags().GetInt("ref-max-size")

	if baseDir == "" {
		baseDir = filepath.Dir(planPath)
	}

	plan, err := deck.LoadPlan(planPath)
	if err != nil {
		return err
	}
	reg, err := settings.Load(baseDir)
	if err != nil {
		return err
	}

	cfg := types.DeckConfig{
		Workers:      workers,
		SlidesDir:    slidesDir,
		BaseDir:      baseDir,
		OutputPDF:    outputPDF,
		DPI:          dpi,
		PageInterval: interval,
		RefMaxSize:   refMaxSize,
	}

	client := imagegen.New(apiConfig(cmd), os.Stdout)

	started := time.Now()
	result, runErr := deck.Run(context.Background(), plan, reg, client, cfg, os.Stdout)
	recordRun(planPath, outputPDF, started, result)
	if runErr != nil {
		return runErr
	}
	if result.HasFailures() {
		return fmt.Errorf("%d slide(s) failed generation", result.Failed)
	}
	return nil
}

// recordRun appends the run to the history index. History is advisory;
// a recording failure warns but never fails the run.
func recordRun(planPath, outputPDF string, started time.Time, result deck.Result) {
	store, err := history.Open(types.HistoryConfig{OutputDir: filepath.Dir(outputPDF)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run history: %v\n", err)
		return
	}
	defer store.Close()

	_, err = store.RecordRun(context.Background(), history.Run{
		Started:   started,
		Finished:  time.Now(),
		PlanPath:  planPath,
		PDFPath:   result.PDFPath,
		Succeeded: result.Succeeded + result.Skipped,
		Failed:    result.Failed,
	}, result.Pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run history: %v\n", err)
	}
}
