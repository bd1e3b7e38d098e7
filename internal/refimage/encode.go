// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refimage prepares reference images for multi-modal generation
// requests: downsized, flattened, and encoded as data URIs small enough
// to embed in a JSON payload.
package refimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxSize caps the longest dimension of an encoded reference.
	DefaultMaxSize = 512

	// DefaultCellSize is the per-image cell size in a contact sheet.
	DefaultCellSize = 256

	// DefaultMaxCols is the column count of a contact sheet.
	DefaultMaxCols = 3
)

// Encoded is a reference image ready for embedding in a request payload.
type Encoded struct {
	// DataURI is the image as "data:image/png;base64,...".
	DataURI string

	// Width and Height are the dimensions after resizing.
	Width  int
	Height int
}

// Encode loads each path, scales it down so the longest side does not
// exceed maxSize (aspect ratio preserved), flattens transparency, and
// returns PNG data URIs. A path that does not resolve to a decodable
// image is an error.
func Encode(paths []string, maxSize int) ([]Encoded, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	encoded := make([]Encoded, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return nil, fmt.Errorf("reference image %s: %w", p, err)
		}
		img = prepare(img, maxSize)
		e, err := encodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("encoding reference %s: %w", p, err)
		}
		encoded = append(encoded, e)
	}
	return encoded, nil
}

// ContactSheet combines several reference images into one grid image on a
// white canvas, each image centered in a cellSize cell, maxCols per row.
// A single input skips the grid and is encoded directly.
func ContactSheet(paths []string, cellSize, maxCols int) (Encoded, error) {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if maxCols <= 0 {
		maxCols = DefaultMaxCols
	}

	if len(paths) == 0 {
		return Encoded{}, fmt.Errorf("no reference images")
	}
	if len(paths) == 1 {
		refs, err := Encode(paths, cellSize)
		if err != nil {
			return Encoded{}, err
		}
		return refs[0], nil
	}

	cells := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return Encoded{}, fmt.Errorf("reference image %s: %w", p, err)
		}
		cells = append(cells, prepare(img, cellSize))
	}

	cols := min(len(cells), maxCols)
	rows := (len(cells) + cols - 1) / cols
	canvas := imaging.New(cols*cellSize, rows*cellSize, color.White)

	for i, img := range cells {
		row := i / cols
		col := i % cols
		x := col*cellSize + (cellSize-img.Bounds().Dx())/2
		y := row*cellSize + (cellSize-img.Bounds().Dy())/2
		canvas = imaging.Paste(canvas, img, image.Pt(x, y))
	}

	return encodePNG(canvas)
}

// SaveResized decodes generated image bytes, scales them down to maxSize,
// flattens transparency, and saves as PNG. Used to keep stored reference
// images small enough for later embedding.
func SaveResized(data []byte, outPath string, maxSize int) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding generated image: %w", err)
	}
	img = prepare(img, maxSize)
	if err := imaging.Save(img, outPath); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}
	return nil
}

// prepare scales img down to fit maxSize and flattens any transparency
// onto a white background. Images already within bounds keep their size.
func prepare(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}
	return Flatten(img)
}

// Flatten composites img over an opaque white background.
func Flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodePNG(img image.Image) (Encoded, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Encoded{}, err
	}
	b := img.Bounds()
	return Encoded{
		DataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}
