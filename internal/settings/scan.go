// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package settings

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// imageExts are the file extensions scan treats as reference images.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// EntryStatus summarizes one indexed entry for the scan report.
type EntryStatus struct {
	Description string `json:"description"`
	ImageCount  int    `json:"image_count"`
}

// CategoryStatus reports one category: what the registry indexes and
// which image files sit in the category folder without being referenced.
type CategoryStatus struct {
	IndexedCount   int                    `json:"indexed_count"`
	Entries        map[string]EntryStatus `json:"entries"`
	UnindexedFiles []string               `json:"unindexed_files"`
}

// Report is the scan output, serialized as JSON for agent consumption.
type Report struct {
	Initialized bool                      `json:"initialized"`
	Categories  map[string]CategoryStatus `json:"categories,omitempty"`
}

// Scan inspects the settings folders under baseDir and reports indexed
// entries alongside image files the registry does not reference yet.
func Scan(baseDir string) (*Report, error) {
	if _, err := os.Stat(FilePath(baseDir)); err != nil {
		if os.IsNotExist(err) {
			return &Report{Initialized: false}, nil
		}
		return nil, err
	}

	reg, err := Load(baseDir)
	if err != nil {
		return nil, err
	}

	// All image paths the registry references, normalized for comparison.
	indexed := make(map[string]bool)
	for _, cat := range Categories {
		for _, e := range reg.Entries(cat) {
			for _, img := range e.Images {
				indexed[filepath.Clean(img)] = true
			}
		}
	}

	report := &Report{
		Initialized: true,
		Categories:  make(map[string]CategoryStatus, len(Categories)),
	}

	for _, cat := range Categories {
		status := CategoryStatus{
			Entries:        make(map[string]EntryStatus),
			UnindexedFiles: []string{},
		}
		for _, e := range reg.Entries(cat) {
			status.Entries[e.Name] = EntryStatus{
				Description: e.Description,
				ImageCount:  len(e.Images),
			}
		}
		status.IndexedCount = len(status.Entries)

		files, err := imageFiles(filepath.Join(DirPath(baseDir), cat), baseDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !indexed[f] {
				status.UnindexedFiles = append(status.UnindexedFiles, f)
			}
		}

		report.Categories[cat] = status
	}
	return report, nil
}

// imageFiles walks dir and returns image paths relative to baseDir, the
// same form registry entries use.
func imageFiles(dir, baseDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.Clean(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
