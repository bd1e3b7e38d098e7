// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deck-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// APIConfig holds settings for the image-generation API.
type APIConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the API base URL (default "https://luckyapi.chat/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier. The default contains a non-ASCII
	// billing annotation and must be sent to the API unmodified.
	Model string `json:"model" yaml:"model"`

	// APIKey is the bearer token for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxAttempts is the total attempt budget for a generation call,
	// including the first try (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// DeckConfig holds settings for a full deck generation run.
type DeckConfig struct {
	// Workers is the number of pages generated concurrently (default 3).
	Workers int `json:"workers" yaml:"workers"`

	// SlidesDir is the directory slide images are written to.
	SlidesDir string `json:"slides_dir" yaml:"slides_dir"`

	// BaseDir is the project root containing settings/ and referenced
	// image paths. Defaults to the plan file's directory.
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// OutputPDF is the path of the assembled deck.
	OutputPDF string `json:"output_pdf" yaml:"output_pdf"`

	// DPI sets the page resolution for PDF assembly (default 150).
	DPI float64 `json:"dpi" yaml:"dpi"`

	// PageInterval spaces out generation calls across workers so a burst
	// of pages does not trip API rate limits (default 1s, 0 disables).
	PageInterval time.Duration `json:"page_interval" yaml:"page_interval"`

	// RefMaxSize caps the longest dimension of attached reference images
	// in pixels (default 512).
	RefMaxSize int `json:"ref_max_size" yaml:"ref_max_size"`
}

// HistoryConfig holds settings for the run-history index.
type HistoryConfig struct {
	// OutputDir is the base directory for run artifacts (contains index/).
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
