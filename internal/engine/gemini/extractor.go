// Package gemini is the inference-backed extraction engine. It delegates
// classification and structured extraction to a text-completion service and
// degrades in-place on malformed output. It never substitutes deterministic
// extraction for its own; cross-engine fallback belongs to the pipeline
// selector alone.
package gemini

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"certidocs-backend/constants"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/schema"
)

// EngineName tags results produced by this engine, including the degraded
// partial results for unparseable completions.
const EngineName = "gemini"

type Extractor struct {
	client *Client
	logger *slog.Logger
	smmlv  float64
}

func NewExtractor(client *Client, logger *slog.Logger, smmlv float64) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if smmlv <= 0 {
		smmlv = 1300000
	}
	return &Extractor{client: client, logger: logger, smmlv: smmlv}
}

func (e *Extractor) Name() string { return EngineName }

// Extract runs the two sequential completion calls: classification, then
// schema-constrained extraction. Any exhausted model list surfaces as an
// error wrapping common.ErrEngineUnavailable for the selector to catch.
func (e *Extractor) Extract(ctx context.Context, text, filename string) (engine.Result, error) {
	dt, err := e.Classify(ctx, text, filename)
	if err != nil {
		return engine.Result{}, err
	}
	e.logger.Info("gemini.classify.ok", "filename", filename, "document_type", dt)

	return e.ExtractStructured(ctx, text, dt)
}

// Classify asks the completion service for exactly one closed-set label.
// Out-of-set responses map to OTHER rather than failing.
func (e *Extractor) Classify(ctx context.Context, text, filename string) (constants.DocumentType, error) {
	response, err := e.client.Generate(ctx, BuildClassificationPrompt(text, filename))
	if err != nil {
		return constants.Other, err
	}

	label := strings.ToUpper(strings.TrimSpace(response))
	if dt, ok := constants.CanonicalizeDocumentType(label); ok {
		return dt, nil
	}
	e.logger.Warn("gemini.classify.unknown_label", "label", truncate(label, 60))
	return constants.Other, nil
}

var fenceRe = regexp.MustCompile("```json\n?|\n?```")

// rawTextLimit bounds the snippet kept when a completion cannot be parsed.
const rawTextLimit = 500

// ExtractStructured runs the extraction prompt for an already classified
// document. Malformed completions (non-JSON or schema-violating JSON) do not
// raise: they degrade to a partial result with confidence 0.5, still tagged
// with this engine's name.
func (e *Extractor) ExtractStructured(ctx context.Context, text string, dt constants.DocumentType) (engine.Result, error) {
	fields := schema.FieldsFor(dt)
	response, err := e.client.Generate(ctx, BuildExtractionPrompt(dt, fields, text))
	if err != nil {
		return engine.Result{}, err
	}

	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(response, ""))

	var extracted map[string]any
	if err := json.Unmarshal([]byte(cleaned), &extracted); err != nil {
		e.logger.Warn("gemini.extract.parse_failed", "document_type", dt, "error", err)
		return e.partialResult(text, dt, "Failed to parse Gemini response"), nil
	}
	if err := e.validateShape(fields, cleaned); err != nil {
		e.logger.Warn("gemini.extract.schema_mismatch", "document_type", dt, "error", err)
		return e.partialResult(text, dt, "Gemini response does not match schema"), nil
	}

	if dt == constants.ContractCertification {
		extracted = e.postProcessCertification(extracted)
	}

	conf := e.confidence(extracted, dt)
	e.logger.Info("gemini.extract.ok", "document_type", dt, "fields", len(extracted), "confidence", conf)

	return engine.Result{
		DocumentType: dt,
		Fields:       extracted,
		Confidence:   conf,
		EngineName:   EngineName,
	}, nil
}

// validateShape checks types only. Required-field completeness is scored by
// confidence, not enforced here: a sparse but well-typed completion is a
// low-confidence result, not a malformed one.
func (e *Extractor) validateShape(fields []schema.Field, data string) error {
	shape := schema.BuildJSONSchema(fields)
	delete(shape, "required")
	return schema.ValidateJSONAgainstSchema(shape, []byte(data))
}

func (e *Extractor) partialResult(text string, dt constants.DocumentType, parseErr string) engine.Result {
	return engine.Result{
		DocumentType: dt,
		Fields: map[string]any{
			"rawText":      truncate(text, rawTextLimit),
			"parseError":   parseErr,
			"documentType": string(dt),
		},
		Confidence: 0.5,
		EngineName: EngineName,
	}
}

// postProcessCertification fills in derived certification fields the model
// omitted: SMMLV reference-unit values and the whole-month contract
// duration (floored at 1).
func (e *Extractor) postProcessCertification(data map[string]any) map[string]any {
	if v, ok := numberAt(data, "valorSinIva"); ok && !present(data["valorSMMLV"]) {
		data["valorSMMLV"] = round2(v / e.smmlv)
	}
	if v, ok := numberAt(data, "valorConIva"); ok && !present(data["valorSMMLVIva"]) {
		data["valorSMMLVIva"] = round2(v / e.smmlv)
	}

	if present(data["duracionMeses"]) {
		return data
	}
	start, okStart := dateAt(data, "fechaInicio")
	end, okEnd := dateAt(data, "fechaFin")
	if okStart && okEnd {
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		if months < 1 {
			months = 1
		}
		data["duracionMeses"] = float64(months)
	}
	return data
}

// confidence is a heuristic completeness score capped at 0.95. For the
// certification schema it counts a fixed critical-field subset; for other
// types it scores on total field count.
func (e *Extractor) confidence(data map[string]any, dt constants.DocumentType) float64 {
	base := 0.7

	if dt == constants.ContractCertification {
		critical := []string{"cliente", "contratista", "objeto", "valorSinIva"}
		presentCount := 0
		for _, name := range critical {
			if present(data[name]) {
				presentCount++
			}
		}
		base = 0.6 + float64(presentCount)*0.08
		if present(data["valorSMMLV"]) || present(data["valorSMMLVIva"]) {
			base += 0.1
		}
	} else {
		if len(data) > 3 {
			base += 0.1
		}
		if len(data) > 5 {
			base += 0.1
		}
	}

	return math.Min(0.95, base)
}

// present reports whether a decoded JSON value carries usable content.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func numberAt(data map[string]any, key string) (float64, bool) {
	v, ok := data[key].(float64)
	return v, ok && v != 0
}

func dateAt(data map[string]any, key string) (time.Time, bool) {
	s, ok := data[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
