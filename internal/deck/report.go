// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// RunReport is the YAML document written next to the assembled PDF so a
// run's per-page outcomes survive for later inspection.
type RunReport struct {
	GeneratedAt time.Time          `yaml:"generated_at"`
	PDF         string             `yaml:"pdf"`
	Succeeded   int                `yaml:"succeeded"`
	Skipped     int                `yaml:"skipped"`
	Failed      int                `yaml:"failed"`
	Pages       []types.PageResult `yaml:"pages"`
}

// writeReport writes the run report next to the PDF, named after it
// (deck.pdf -> deck-report.yaml).
func writeReport(pdfPath string, result Result) (string, error) {
	report := RunReport{
		GeneratedAt: time.Now().UTC(),
		PDF:         pdfPath,
		Succeeded:   result.Succeeded,
		Skipped:     result.Skipped,
		Failed:      result.Failed,
		Pages:       result.Pages,
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	base := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	path := base + "-report.yaml"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
