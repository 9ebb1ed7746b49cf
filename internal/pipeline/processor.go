// Package pipeline wires the extraction engines into an ordered fallback
// chain. This is the single point in the system where cross-engine fallback
// happens; engines themselves only succeed or fail.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/metrics"
	"certidocs-backend/internal/textsource"
)

// Processor selects an extraction engine and guarantees a result by
// iterating the chain until one succeeds. The chain order is configuration,
// not control flow: the terminal element is always the deterministic engine.
type Processor struct {
	logger *slog.Logger
	source textsource.Source
	chain  []engine.Engine
}

// NewProcessor builds a processor over an explicit engine chain. The last
// engine in the chain is expected to be infallible; anything before it may
// fail and is skipped on error.
func NewProcessor(logger *slog.Logger, source textsource.Source, chain ...engine.Engine) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, source: source, chain: chain}
}

// ProcessDocument validates the upload triple, obtains source text, and runs
// the engine chain. The result's EngineName always names the engine that
// actually produced the data, never the preferred one.
func (p *Processor) ProcessDocument(ctx context.Context, fileBytes []byte, mimeType, filename string) (engine.Result, error) {
	if err := ValidateInput(fileBytes, mimeType, filename); err != nil {
		return engine.Result{}, err
	}
	if len(p.chain) == 0 {
		return engine.Result{}, common.NewAppError("PIPELINE_ERROR", "no extraction engines configured", common.ErrInternal)
	}

	start := time.Now()
	text, err := p.source.Text(ctx, fileBytes, mimeType, filename)
	if err != nil {
		return engine.Result{}, fmt.Errorf("obtain source text: %w", err)
	}

	var lastErr error
	for i, eng := range p.chain {
		res, err := eng.Extract(ctx, text, filename)
		if err != nil {
			lastErr = err
			metrics.EngineFallbacksTotal.WithLabelValues(eng.Name()).Inc()
			p.logger.Warn("pipeline.engine.failed",
				"engine", eng.Name(),
				"filename", filename,
				"remaining", len(p.chain)-i-1,
				"error", err,
			)
			continue
		}

		res = sanitize(res)
		metrics.ExtractionsTotal.WithLabelValues(res.EngineName, string(res.DocumentType)).Inc()
		metrics.ExtractionDuration.WithLabelValues(res.EngineName).Observe(time.Since(start).Seconds())
		p.logger.Info("pipeline.extract.ok",
			"engine", res.EngineName,
			"document_type", res.DocumentType,
			"confidence", res.Confidence,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, nil
	}

	// The terminal engine is specified to never fail; reaching this point is
	// a programming error, not an environmental one.
	p.logger.Error("pipeline.defect.all_engines_failed", "filename", filename, "error", lastErr)
	return engine.Result{}, common.NewAppError("PIPELINE_DEFECT", "all extraction engines failed", lastErr)
}

// ValidateInput rejects the upload triple before any engine runs. This is
// the only error class that propagates to callers as a hard failure.
func ValidateInput(fileBytes []byte, mimeType, filename string) error {
	v := common.NewValidator()
	v.Field("fileBytes", fileBytes, common.Required)
	v.Field("filename", filename, common.Required)
	if err := v.Error(); err != nil {
		return err
	}
	if !constants.MimeAllowed(mimeType) {
		return common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("unsupported mime type %q", mimeType), common.ErrValidation)
	}
	return nil
}

// sanitize enforces the result invariants regardless of which engine
// produced it: confidence clamped to [0,1] and reserved metadata keys
// stripped from user-visible fields.
func sanitize(res engine.Result) engine.Result {
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	for k := range res.Fields {
		if strings.HasPrefix(k, "_") {
			delete(res.Fields, k)
		}
	}
	return res
}
