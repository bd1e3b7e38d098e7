package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/imagegen"
	"github.com/pdiddy/deck-engine/internal/refimage"
)

var referenceCmd = &cobra.Command{
	Use:   "reference [prompt]",
	Short: "Generate a reference image for the settings registry",
	Long: `Reference generates an image meant to be stored in settings/ and reused
as a visual anchor for later slides. Existing images can be attached as
references for the generation itself; multiple attachments are combined
into a single contact sheet. The result is downscaled before saving so
stored references stay small.`,
	Args: cobra.ExactArgs(1),
	RunE: runReference,
}

func init() {
	referenceCmd.Flags().StringP("output", "o", "", "output image path (required)")
	referenceCmd.Flags().StringArray("ref", nil, "existing image to attach as a reference (repeatable)")
	referenceCmd.Flags().Int("max-size", refimage.DefaultMaxSize, "longest side of the saved image in pixels")
	referenceCmd.Flags().Int("retries", 0, "generation attempt budget (default 3)")
	referenceCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(referenceCmd)
}

func runReference(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output")
	refPaths, _ := cmd.Flags().GetStringArray("ref")
	maxSize, _ := cmd.Flags().GetInt("max-size")

	var refs []refimage.Encoded
	switch {
	case len(refPaths) == 1:
		encoded, err := refimage.Encode(refPaths, maxSize)
		if err != nil {
			return err
		}
		refs = encoded
	case len(refPaths) > 1:
		sheet, err := refimage.ContactSheet(refPaths, refimage.DefaultCellSize, refimage.DefaultMaxCols)
		if err != nil {
			return err
		}
		refs = []refimage.Encoded{sheet}
	}

	client := imagegen.New(apiConfig(cmd), os.Stdout)
	data, attempts, err := client.Generate(context.Background(), args[0], refs)
	if err != nil {
		return err
	}

	if err := refimage.SaveResized(data, outPath, maxSize); err != nil {
		return err
	}
	fmt.Printf("Generated %s (%d attempt(s))\n", outPath, attempts)
	return nil
}
