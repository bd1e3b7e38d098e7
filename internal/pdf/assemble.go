// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf assembles slide images into a single PDF, one page per
// image. Page order is the lexicographic order of the image filenames;
// the numeric-prefix naming convention of slide plans is the only
// ordering signal ("10" sorts before "2").
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/deck-engine/internal/refimage"
)

// DefaultDPI is the page resolution when none is configured.
const DefaultDPI = 150

// Assemble writes the images at imagePaths as sequential pages of a
// single PDF at outputPath. Each page is sized pixels/dpi inches, with
// transparency flattened onto white. An empty input set or an
// undecodable image is an error and no output file is produced.
func Assemble(imagePaths []string, outputPath string, dpi float64) error {
	if len(imagePaths) == 0 {
		return fmt.Errorf("no images to assemble")
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	paths := sortedByFilename(imagePaths)

	doc := fpdf.New("P", "in", "Letter", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for i, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", p, err)
		}
		img = refimage.Flatten(img)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return fmt.Errorf("re-encoding %s: %w", p, err)
		}

		wIn := float64(img.Bounds().Dx()) / dpi
		hIn := float64(img.Bounds().Dy()) / dpi

		// AddPageFormat treats the size as portrait dimensions and
		// swaps them for landscape orientation.
		orient, size := "P", fpdf.SizeType{Wd: wIn, Ht: hIn}
		if wIn > hIn {
			orient, size = "L", fpdf.SizeType{Wd: hIn, Ht: wIn}
		}
		doc.AddPageFormat(orient, size)

		name := fmt.Sprintf("page-%04d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.ImageOptions(name, 0, 0, wIn, hIn, false, opts, 0, "")
		if doc.Err() {
			return fmt.Errorf("placing %s: %w", p, doc.Error())
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	// Write to a temp file and rename so a failed assembly never leaves
	// a partial PDF behind.
	tmpFile, err := os.CreateTemp(filepath.Dir(outputPath), ".assemble-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	outErr := doc.Output(tmpFile)
	closeErr := tmpFile.Close()
	if outErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing PDF: %w", outErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// sortedByFilename returns a copy of paths ordered by base filename,
// lexicographically.
func sortedByFilename(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})
	return sorted
}
