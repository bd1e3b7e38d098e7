// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// PageSpec describes one page of a slide plan.
type PageSpec struct {
	// Filename is the output image name, unique within the plan. Sorted
	// lexicographically it determines page order in the assembled PDF,
	// so plans use numeric-prefix names like "01_title.png".
	Filename string `json:"filename" yaml:"filename"`

	// Prompt is the page description sent to the image model.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Settings lists registry references attached for visual consistency:
	// either "category" (all entries) or "category.name" (one entry).
	Settings []string `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// SlidePlan is an ordered list of pages plus a shared style prefix.
// Plans are immutable during a generation run.
type SlidePlan struct {
	// StylePrefix is prepended to every page prompt.
	StylePrefix string `json:"style_prefix,omitempty" yaml:"style_prefix,omitempty"`

	Slides []PageSpec `json:"slides" yaml:"slides"`
}

// Validate checks the plan before dispatch. With parallel workers a
// duplicate filename would make the surviving image depend on completion
// order, so duplicates are rejected up front.
func (p *SlidePlan) Validate() error {
	if len(p.Slides) == 0 {
		return fmt.Errorf("plan contains no slides")
	}
	seen := make(map[string]bool, len(p.Slides))
	for i, s := range p.Slides {
		if strings.TrimSpace(s.Filename) == "" {
			return fmt.Errorf("slide %d: empty filename", i+1)
		}
		if strings.TrimSpace(s.Prompt) == "" {
			return fmt.Errorf("slide %q: empty prompt", s.Filename)
		}
		if seen[s.Filename] {
			return fmt.Errorf("duplicate filename %q in plan", s.Filename)
		}
		seen[s.Filename] = true
	}
	return nil
}
