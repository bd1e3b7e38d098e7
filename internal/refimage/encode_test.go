// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refimage

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a solid-color test image and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

// decodeDataURI parses a PNG data URI back into an image.
func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestEncode_ResizesPreservingAspect(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "wide.png", 1024, 768, color.White)

	refs, err := Encode([]string{p}, 512)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	assert.Equal(t, 512, refs[0].Width)
	assert.Equal(t, 384, refs[0].Height)

	img := decodeDataURI(t, refs[0].DataURI)
	assert.Equal(t, 512, img.Bounds().Dx())
	assert.Equal(t, 384, img.Bounds().Dy())
}

func TestEncode_SmallImageKeepsSize(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "small.png", 200, 100, color.White)

	refs, err := Encode([]string{p}, 512)
	require.NoError(t, err)
	assert.Equal(t, 200, refs[0].Width)
	assert.Equal(t, 100, refs[0].Height)
}

func TestEncode_TallImage(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "tall.png", 768, 1024, color.White)

	refs, err := Encode([]string{p}, 512)
	require.NoError(t, err)
	assert.Equal(t, 384, refs[0].Width)
	assert.Equal(t, 512, refs[0].Height)
}

func TestEncode_UndecodableFails(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(p, []byte("not an image"), 0o644))

	_, err := Encode([]string{p}, 512)
	assert.Error(t, err)
}

func TestEncode_MissingFileFails(t *testing.T) {
	_, err := Encode([]string{"does/not/exist.png"}, 512)
	assert.Error(t, err)
}

func TestFlatten_TransparencyBecomesWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	// Fully transparent input.
	flat := Flatten(img)

	r, g, b, a := flat.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestContactSheet_GridDimensions(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		paths = append(paths, writePNG(t, dir, name, 300, 300, color.White))
	}

	sheet, err := ContactSheet(paths, 256, 3)
	require.NoError(t, err)

	// Four cells at three columns: 3x256 wide, 2x256 tall.
	assert.Equal(t, 768, sheet.Width)
	assert.Equal(t, 512, sheet.Height)
}

func TestContactSheet_SingleImagePassesThrough(t *testing.T) {
	dir := t.TempDir()
	p := writePNG(t, dir, "one.png", 600, 300, color.White)

	sheet, err := ContactSheet([]string{p}, 256, 3)
	require.NoError(t, err)
	assert.Equal(t, 256, sheet.Width)
	assert.Equal(t, 128, sheet.Height)
}

func TestContactSheet_EmptyFails(t *testing.T) {
	_, err := ContactSheet(nil, 256, 3)
	assert.Error(t, err)
}

func TestSaveResized(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "src.png", 1024, 1024, color.White)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.png")
	require.NoError(t, SaveResized(data, out, 512))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
}
