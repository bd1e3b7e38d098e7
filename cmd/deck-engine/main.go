// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the deck-engine CLI.
// Claude drives the deck workflow through skills; the CLI handles
// single-slide generation, reference creation, settings management,
// full deck runs, and PDF assembly.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/deck-engine/internal/secrets"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultUserAgent = "deck-engine/0.1"

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the deck-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "deck-engine",
	Short: "Slide deck generation through an image-generation API",
	Long: `deck-engine turns slide plans into finished PDF decks. Each slide is
generated by an image model from a prompt, optionally conditioned on
reference images kept in a settings registry for visual consistency.

Each stage is a subcommand: slide, reference, settings, deck, pdf, and
history. Claude composes these into deck workflows through
.claude/commands/ skills.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./deck-engine.yaml or ~/.config/deck-engine/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "image API base URL (default https://luckyapi.chat/v1)")
	rootCmd.PersistentFlags().String("model", "", "image model identifier")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("deck-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "deck-engine"))
		}
	}

	viper.SetEnvPrefix("DECK_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// apiConfig assembles the image API configuration for a command: flag
// values win, then the config file / environment, then the client's
// built-in defaults.
func apiConfig(cmd *cobra.Command) types.APIConfig {
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("base_url")
	}
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("model")
	}
	retries, _ := cmd.Flags().GetInt("retries")

	return types.APIConfig{
		HTTPConfig: types.HTTPConfig{
			UserAgent: defaultUserAgent,
		},
		BaseURL:     baseURL,
		Model:       model,
		APIKey:      secrets.APIKey(loadedSecrets),
		MaxAttempts: retries,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
