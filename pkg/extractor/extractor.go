// Package extractor detects memory-worthy facts in conversation text. An
// LLM pass fans out one detection prompt per fact type; a cheap regex pass
// pulls out URLs and file paths without burning tokens.
package extractor

import (
	"context"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

// MinConfidence is the floor below which detected candidates are discarded.
const MinConfidence = 0.7

// Candidate is a detected fact before validation and persistence.
type Candidate struct {
	Fact       types.Fact
	Confidence float64
	Method     string
}

// Extractor finds fact candidates in free text.
type Extractor interface {
	// Extract returns candidates at or above MinConfidence. A failure in
	// one fact type's detection never suppresses the others.
	Extract(ctx context.Context, project, owner, text string) ([]Candidate, error)
}

// Config holds detection settings.
type Config struct {
	Model       string `mapstructure:"model"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	MaxParallel int    `mapstructure:"max_parallel"`
}
