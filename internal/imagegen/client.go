// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagegen calls the hosted image-generation API. The API speaks
// the chat-completions protocol but answers with a markdown image link
// instead of inline bytes, so every generation is two requests: one POST
// to generate, one GET to download.
package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/deck-engine/internal/httputil"
	"github.com/pdiddy/deck-engine/internal/refimage"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	// DefaultBaseURL is the hosted API endpoint.
	DefaultBaseURL = "https://luckyapi.chat/v1"

	// DefaultModel is the image model identifier. The non-ASCII billing
	// annotation is part of the identifier and is passed through as-is.
	DefaultModel = "(按次)gemini-3-pro-image-preview"

	// Generation can take minutes; the download is a plain file fetch.
	defaultTimeout  = 300 * time.Second
	downloadTimeout = 60 * time.Second

	defaultUserAgent = "deck-engine/0.1"
)

// minImageBytes rejects downloads too small to be a real image; error
// pages served with an image content type tend to be under this. Tests
// override it to work with tiny fixtures.
var minImageBytes = 1000

// ErrNoImageLink indicates a 200 response whose body contains no image
// URL. Per the error taxonomy this is a malformed response, not a
// transient failure, so it is never retried.
var ErrNoImageLink = errors.New("no image link in API response")

// markdownImageRe matches ![alt](https://...) links.
var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^\s)]+)\)`)

// bareImageURLRe matches bare URLs ending in a known image extension.
var bareImageURLRe = regexp.MustCompile(`(?i)(https?://\S+\.(?:png|jpe?g|webp|gif))`)

// Client issues generation requests against one API configuration.
type Client struct {
	cfg      types.APIConfig
	generate *http.Client
	download *http.Client
	w        io.Writer
}

// New builds a Client. Retry progress is logged to w.
func New(cfg types.APIConfig, w io.Writer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		cfg:      cfg,
		generate: &http.Client{Timeout: cfg.Timeout},
		download: &http.Client{Timeout: downloadTimeout},
		w:        w,
	}
}

// Chat-completions wire format.
type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one generation request and downloads the resulting image.
// refs are attached ahead of the prompt as image_url parts. The generation
// call is retried on transient failures up to the configured attempt
// budget. The download is not retried; a broken link after a successful
// generation is final. Returns the image bytes and the attempt count.
func (c *Client) Generate(ctx context.Context, prompt string, refs []refimage.Encoded) ([]byte, int, error) {
	if c.cfg.APIKey == "" {
		return nil, 0, fmt.Errorf("no API key configured (set ANTHROPIC_AUTH_TOKEN or .secrets/luckyapi-api-key)")
	}

	var content any = prompt
	if len(refs) > 0 {
		parts := make([]contentPart, 0, len(refs)+1)
		for _, r := range refs {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: r.DataURI}})
		}
		parts = append(parts, contentPart{Type: "text", Text: prompt})
		content = parts
	}

	payload := chatRequest{
		Model:      c.cfg.Model,
		Messages:   []chatMessage{{Role: "user", Content: content}},
		Modalities: []string{"image", "text"},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("User-Agent", c.cfg.UserAgent)

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	resp, attempts, err := httputil.PostJSON(ctx, c.generate, url, header, payload, c.cfg.MaxAttempts, c.w)
	if err != nil {
		return nil, attempts, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if httputil.RetryableStatus(resp.StatusCode) {
			return nil, attempts, &types.TransientError{
				Err: fmt.Errorf("generation failed with HTTP %d after %d attempt(s)", resp.StatusCode, attempts),
			}
		}
		return nil, attempts, fmt.Errorf("generation rejected with HTTP %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, attempts, fmt.Errorf("malformed API response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, attempts, fmt.Errorf("malformed API response: no choices")
	}

	imgURL, ok := extractImageURL(cr.Choices[0].Message.Content)
	if !ok {
		return nil, attempts, ErrNoImageLink
	}

	data, err := c.downloadImage(ctx, imgURL)
	if err != nil {
		return nil, attempts, err
	}
	return data, attempts, nil
}

// GenerateToFile generates an image and writes it to outPath via a temp
// file renamed on success. An existing non-trivial file is kept as-is so
// interrupted deck runs can resume without regenerating finished pages.
func (c *Client) GenerateToFile(ctx context.Context, prompt string, refs []refimage.Encoded, outPath string) (skipped bool, attempts int, err error) {
	if info, err := os.Stat(outPath); err == nil && info.Size() > int64(minImageBytes) {
		return true, 0, nil
	}

	data, attempts, err := c.Generate(ctx, prompt, refs)
	if err != nil {
		return false, attempts, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, attempts, fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(outPath), ".imagegen-*.tmp")
	if err != nil {
		return false, attempts, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return false, attempts, fmt.Errorf("writing image: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return false, attempts, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return false, attempts, fmt.Errorf("renaming temp file: %w", err)
	}
	return false, attempts, nil
}

// extractImageURL pulls an image URL out of the response text, preferring
// a markdown link over a bare URL.
func extractImageURL(content string) (string, bool) {
	if m := markdownImageRe.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	if m := bareImageURLRe.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	return "", false
}

// downloadImage fetches the generated image bytes. Failures here are
// final: the generation already succeeded and is not repeated.
func (c *Client) downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed with HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	if len(data) < minImageBytes {
		return nil, fmt.Errorf("image download too small (%d bytes)", len(data))
	}
	return data, nil
}
