package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/imagegen"
)

var slideCmd = &cobra.Command{
	Use:   "slide [prompt]",
	Short: "Generate a single slide image from a prompt",
	Long: `Slide generates one image from a prompt and writes it to the output
path. An optional style prefix is prepended to the prompt. If the output
file already exists it is left alone and generation is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSlide,
}

func init() {
	slideCmd.Flags().StringP("output", "o", "slide.png", "output image path")
	slideCmd.Flags().String("style", "", "style prefix prepended to the prompt")
	slideCmd.Flags().Int("retries", 0, "generation attempt budget (default 3)")

	rootCmd.AddCommand(slideCmd)
}

func runSlide(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output")
	style, _ := cmd.Flags().GetString("style")

	prompt := args[0]
	if style != "" {
		prompt = strings.TrimSpace(style) + " " + prompt
	}

	client := imagegen.New(apiConfig(cmd), os.Stdout)
	skipped, attempts, err := client.GenerateToFile(context.Background(), prompt, nil, outPath)
	if err != nil {
		return err
	}
	if skipped {
		fmt.Printf("Skipped: %s already exists\n", outPath)
		return nil
	}
	fmt.Printf("Generated %s (%d attempt(s))\n", outPath, attempts)
	return nil
}
