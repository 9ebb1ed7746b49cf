// Package engine defines the extraction engine contract and the selector
// that chains engines with fallback semantics.
package engine

import (
	"context"

	"certidocs-backend/constants"
)

// Result is the raw output of one extraction engine run. It is produced
// fresh per call and owned by the caller afterwards.
type Result struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Fields       map[string]any         `json:"extracted_data"`
	Confidence   float64                `json:"confidence"`
	EngineName   string                 `json:"processing_engine"`
}

// Engine is a strategy that classifies a document and extracts structured
// fields from its source text.
type Engine interface {
	// Name identifies the engine in results and logs.
	Name() string
	// Extract classifies text and produces a populated Result. An engine
	// reports failure only through the returned error; it never substitutes
	// another engine's output for its own.
	Extract(ctx context.Context, text, filename string) (Result, error)
}
