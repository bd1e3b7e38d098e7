// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deck-engine/pkg/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(types.HistoryConfig{OutputDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// The database lands under output/index.
	_, statErr := os.Stat(filepath.Join(dir, "index", "deck.db"))
	require.NoError(t, statErr)
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	id, err := s.RecordRun(ctx, Run{
		Started:   started,
		Finished:  started.Add(90 * time.Second),
		PlanPath:  "slide_plan.json",
		PDFPath:   "output/deck.pdf",
		Succeeded: 2,
		Failed:    1,
	}, []types.PageResult{
		{Filename: "01.png", Status: types.PageGenerated, Attempts: 1, Duration: 4 * time.Second},
		{Filename: "02.png", Status: types.PageFailed, Attempts: 3, Error: "generation failed with HTTP 502"},
		{Filename: "03.png", Status: types.PageSkipped},
	})
	require.NoError(t, err)
	require.Positive(t, id)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, started, runs[0].Started.UTC())
	assert.Equal(t, 2, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, "output/deck.pdf", runs[0].PDFPath)

	pages, err := s.RunPages(ctx, id)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "01.png", pages[0].Filename)
	assert.Equal(t, types.PageFailed, pages[1].Status)
	assert.Contains(t, pages[1].Error, "HTTP 502")
	assert.Equal(t, 4*time.Second, pages[0].Duration)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.RecordRun(ctx, Run{
			Started:  now.Add(time.Duration(i) * time.Minute),
			Finished: now.Add(time.Duration(i)*time.Minute + 30*time.Second),
			PDFPath:  "deck.pdf",
		}, nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestPrintRuns(t *testing.T) {
	var out strings.Builder
	PrintRuns(&out, nil)
	assert.Contains(t, out.String(), "no recorded runs")

	out.Reset()
	PrintRuns(&out, []Run{{ID: 7, Started: time.Now(), Succeeded: 3, Failed: 0, PDFPath: "output/deck.pdf"}})
	assert.Contains(t, out.String(), "3 OK / 0 failed")
	assert.Contains(t, out.String(), "output/deck.pdf")
}
