// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deck orchestrates a full generation run: it resolves each
// page's settings references, fans the generation calls out across a
// bounded worker pool, collects every outcome, and hands the surviving
// images to the PDF assembler.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/deck-engine/internal/pdf"
	"github.com/pdiddy/deck-engine/internal/refimage"
	"github.com/pdiddy/deck-engine/internal/settings"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	defaultWorkers = 3
)

// Generator produces one image file per prompt. *imagegen.Client is the
// production implementation; tests supply a mock.
type Generator interface {
	GenerateToFile(ctx context.Context, prompt string, refs []refimage.Encoded, outPath string) (skipped bool, attempts int, err error)
}

// Result holds the outcome of a deck run.
type Result struct {
	// Pages has one entry per PageSpec, in plan order.
	Pages []types.PageResult

	// PDFPath is the assembled deck, empty if assembly did not run.
	PDFPath string

	// ReportPath is the YAML run report, empty if it could not be written.
	ReportPath string

	Succeeded int
	Skipped   int
	Failed    int
}

// Total returns the number of pages processed.
func (r Result) Total() int {
	return r.Succeeded + r.Skipped + r.Failed
}

// HasFailures reports whether any page failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// LoadPlan reads and validates a slide plan document.
func LoadPlan(path string) (*types.SlidePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan types.SlidePlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return &plan, nil
}

// Run generates every page of the plan and assembles the deck PDF.
//
// Pages run on up to cfg.Workers goroutines, paced by cfg.PageInterval.
// Each task reads only its own PageSpec and the immutable registry, and
// writes only its own slot of the pre-sized result slice and its own
// output file, so no locking is needed. A failed page never aborts its
// siblings; the run settles completely, reports a summary to w, and
// assembles whatever images exist. Page order in the PDF comes from
// filename sort alone, never from completion order.
func Run(ctx context.Context, plan *types.SlidePlan, reg *settings.Registry, gen Generator, cfg types.DeckConfig, w io.Writer) (Result, error) {
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RefMaxSize <= 0 {
		cfg.RefMaxSize = refimage.DefaultMaxSize
	}
	if err := os.MkdirAll(cfg.SlidesDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating slides directory: %w", err)
	}

	fmt.Fprintf(w, "Generating %d slides (workers=%d)...\n", len(plan.Slides), cfg.Workers)

	var limiter *rate.Limiter
	if cfg.PageInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.PageInterval), cfg.Workers)
	}

	results := make([]types.PageResult, len(plan.Slides))

	var eg errgroup.Group
	eg.SetLimit(cfg.Workers)
	for i, page := range plan.Slides {
		i, page := i, page
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = types.PageResult{
						Filename: page.Filename,
						Status:   types.PageFailed,
						Error:    err.Error(),
					}
					return nil
				}
			}
			results[i] = generatePage(ctx, page, plan.StylePrefix, reg, gen, cfg)
			r := results[i]
			switch r.Status {
			case types.PageSkipped:
				fmt.Fprintf(w, "  [%s] SKIP (already exists)\n", r.Filename)
			case types.PageGenerated:
				fmt.Fprintf(w, "  [%s] OK (%d attempt(s))\n", r.Filename, r.Attempts)
			default:
				fmt.Fprintf(w, "  [%s] FAILED: %s\n", r.Filename, r.Error)
			}
			return nil
		})
	}
	eg.Wait() // tasks never return errors; failures live in results

	result := Result{Pages: results}
	for _, r := range results {
		switch r.Status {
		case types.PageGenerated:
			result.Succeeded++
		case types.PageSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	fmt.Fprintf(w, "\nGeneration complete: %d OK, %d failed (total: %d)\n",
		result.Succeeded+result.Skipped, result.Failed, result.Total())
	if result.Failed > 0 {
		fmt.Fprintf(w, "warning: some slides failed; the PDF will contain available slides only\n")
	}

	// Collect the images that actually exist, then assemble. Ordering is
	// the assembler's concern (filename sort).
	var imagePaths []string
	for _, r := range results {
		if r.OK() && r.Path != "" {
			imagePaths = append(imagePaths, r.Path)
		}
	}
	if len(imagePaths) == 0 {
		return result, fmt.Errorf("no slide images available for PDF")
	}

	fmt.Fprintf(w, "\nCombining %d slides into PDF...\n", len(imagePaths))
	if err := pdf.Assemble(imagePaths, cfg.OutputPDF, cfg.DPI); err != nil {
		return result, fmt.Errorf("assembling PDF: %w", err)
	}
	result.PDFPath = cfg.OutputPDF
	fmt.Fprintf(w, "Deck complete: %s\n", cfg.OutputPDF)

	if reportPath, err := writeReport(cfg.OutputPDF, result); err != nil {
		fmt.Fprintf(w, "warning: could not write run report: %v\n", err)
	} else {
		result.ReportPath = reportPath
	}

	return result, nil
}

// generatePage builds the full prompt and reference set for one page and
// invokes the generator. All failure modes end up in the PageResult.
func generatePage(ctx context.Context, page types.PageSpec, stylePrefix string, reg *settings.Registry, gen Generator, cfg types.DeckConfig) types.PageResult {
	start := time.Now()
	result := types.PageResult{Filename: page.Filename}

	fail := func(err error) types.PageResult {
		result.Status = types.PageFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	texts, imagePaths, err := reg.ResolveAll(page.Settings, cfg.BaseDir)
	if err != nil {
		return fail(err)
	}

	var refs []refimage.Encoded
	if len(imagePaths) > 0 {
		refs, err = refimage.Encode(imagePaths, cfg.RefMaxSize)
		if err != nil {
			return fail(err)
		}
	}

	prompt := buildPrompt(stylePrefix, texts, page.Prompt)
	outPath := filepath.Join(cfg.SlidesDir, page.Filename)

	skipped, attempts, err := gen.GenerateToFile(ctx, prompt, refs, outPath)
	result.Attempts = attempts
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = types.PageFailed
		result.Error = err.Error()
		return result
	}

	result.Path = outPath
	if skipped {
		result.Status = types.PageSkipped
	} else {
		result.Status = types.PageGenerated
	}
	return result
}

// buildPrompt joins the style prefix, the resolved settings descriptions,
// and the page prompt.
func buildPrompt(stylePrefix string, settingTexts []string, pagePrompt string) string {
	parts := make([]string, 0, len(settingTexts)+2)
	if stylePrefix != "" {
		parts = append(parts, stylePrefix)
	}
	parts = append(parts, settingTexts...)
	parts = append(parts, pagePrompt)
	return strings.Join(parts, " ")
}
