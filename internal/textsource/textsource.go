// Package textsource abstracts how source text for the extraction pipeline
// is obtained. The pipeline never reads file bytes itself; it consumes a
// Source, which may be a real OCR integration, a fixture, or the simulated
// reader shipped here.
package textsource

import "context"

// Source produces the text the extraction engines operate on.
type Source interface {
	Text(ctx context.Context, fileBytes []byte, mimeType, filename string) (string, error)
}
