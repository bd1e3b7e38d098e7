// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PageStatus indicates the outcome of one page-generation task.
type PageStatus string

const (
	PageGenerated PageStatus = "generated"
	PageSkipped   PageStatus = "skipped"
	PageFailed    PageStatus = "failed"
)

// PageResult is the per-page outcome of a deck run. Produced once per
// PageSpec and not mutated afterwards.
type PageResult struct {
	// Filename is the page's target filename from the plan.
	Filename string `json:"filename" yaml:"filename"`

	// Path is the saved image path; empty when the page failed.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	Status PageStatus `json:"status" yaml:"status"`

	// Attempts counts generation calls made for this page.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Duration is the wall time the task took.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Error is the root cause for a failed page.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the page produced an image.
func (r PageResult) OK() bool {
	return r.Status != PageFailed
}
