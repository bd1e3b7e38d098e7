// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the settings registry (init, add, scan)",
	Long: `Settings manages the registry of named visual elements (style,
characters, world, props) that slide prompts reference for consistency.
Entries live in settings/settings.json next to their image files.`,
}

// --- init subcommand ---

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the settings directory structure and an empty registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, _ := cmd.Flags().GetString("base-dir")
		created, err := settings.Init(baseDir)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Initialized %s (categories: %s)\n",
				settings.FilePath(baseDir), strings.Join(settings.Categories, ", "))
		} else {
			fmt.Printf("%s already exists\n", settings.FilePath(baseDir))
		}
		return nil
	},
}

// --- add subcommand ---

var settingsAddCmd = &cobra.Command{
	Use:   "add category [name]",
	Short: "Add or update a registry entry",
	Long: `Add inserts a named entry into a category, or merges into an existing
one: the description is replaced and new image paths are appended. When
name is omitted it defaults to "default", which suits single-entry
categories like style.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsAdd,
}

func runSettingsAdd(cmd *cobra.Command, args []string) error {
	baseDir, _ := cmd.Flags().GetString("base-dir")
	description, _ := cmd.Flags().GetString("description")
	images, _ := cmd.Flags().GetStringArray("image")

	category := args[0]
	name := "default"
	if len(args) == 2 {
		name = args[1]
	}

	reg, err := settings.Load(baseDir)
	if err != nil {
		return err
	}
	if err := reg.Upsert(category, name, description, images); err != nil {
		return err
	}
	fmt.Printf("Updated %s.%s (%d image(s))\n", category, name, len(images))
	return nil
}

// --- scan subcommand ---

var settingsScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report registry status and unindexed image files",
	Long: `Scan compares the registry against the files on disk and prints a JSON
report: per category, the indexed entries with their description and
image counts, plus image files present in the category folder that no
entry references.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, _ := cmd.Flags().GetString("base-dir")
		report, err := settings.Scan(baseDir)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	settingsCmd.PersistentFlags().String("base-dir", ".", "project root containing settings/")

	settingsAddCmd.Flags().StringP("description", "d", "", "entry description, included in prompts")
	settingsAddCmd.Flags().StringArrayP("image", "i", nil, "image path relative to the project root (repeatable)")

	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsAddCmd)
	settingsCmd.AddCommand(settingsScanCmd)

	rootCmd.AddCommand(settingsCmd)
}
