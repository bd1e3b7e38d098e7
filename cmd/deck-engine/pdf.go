package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/pdf"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [images...]",
	Short: "Combine existing images into a PDF",
	Long: `Pdf assembles already-generated images into a deck without touching
the image API. Pass image files, or a single directory to include every
image inside it. Pages are ordered by filename.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPDF,
}

func init() {
	pdfCmd.Flags().StringP("output", "o", "output/deck.pdf", "output PDF path")
	pdfCmd.Flags().Float64("dpi", 0, "PDF page resolution (default 150)")

	rootCmd.AddCommand(pdfCmd)
}

func runPDF(cmd *cobra.Command, args []string) error {
	outputPDF, _ := cmd.Flags().GetString("output")
	dpi, _ := cmd.Flags().GetFloat64("dpi")

	paths, err := expandImageArgs(args)
	if err != nil {
		return err
	}

	if err := pdf.Assemble(paths, outputPDF, dpi); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d page(s))\n", outputPDF, len(paths))
	return nil
}

// expandImageArgs resolves a single directory argument to the image
// files inside it; explicit file arguments pass through unchanged.
func expandImageArgs(args []string) ([]string, error) {
	if len(args) != 1 {
		return args, nil
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return args, nil
	}

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp", ".gif":
			paths = append(paths, filepath.Join(args[0], entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", args[0])
	}
	return paths, nil
}
