package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/engine/fallback"
	"certidocs-backend/internal/textsource"
)

type stubEngine struct {
	name   string
	result engine.Result
	err    error
	calls  int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Extract(context.Context, string, string) (engine.Result, error) {
	s.calls++
	return s.result, s.err
}

func validPDF() []byte { return []byte("%PDF-1.4 certificacion de experiencia") }

func TestProcessDocument_PreferredEngineWins(t *testing.T) {
	preferred := &stubEngine{
		name: "gemini",
		result: engine.Result{
			DocumentType: constants.ContractCertification,
			Fields:       map[string]any{"cliente": "X"},
			Confidence:   0.9,
			EngineName:   "gemini",
		},
	}
	terminal := &stubEngine{name: "enhanced_fallback"}
	p := NewProcessor(nil, textsource.NewSimulated(), preferred, terminal)

	res, err := p.ProcessDocument(context.Background(), validPDF(), "application/pdf", "cert.pdf")
	require.NoError(t, err)

	assert.Equal(t, "gemini", res.EngineName)
	assert.Equal(t, 1, preferred.calls)
	assert.Equal(t, 0, terminal.calls, "terminal engine must not run when the preferred one succeeds")
}

func TestProcessDocument_FallsBackOnEngineError(t *testing.T) {
	failing := &stubEngine{name: "gemini", err: common.ErrEngineUnavailable}
	p := NewProcessor(nil, textsource.NewSimulated(), failing, fallback.New(nil, 1300000))

	res, err := p.ProcessDocument(context.Background(), validPDF(), "application/pdf", "cert.pdf")
	require.NoError(t, err)

	assert.Equal(t, fallback.EngineName, res.EngineName)
	assert.Equal(t, 1, failing.calls)
	assert.NotEmpty(t, res.Fields)
}

func TestProcessDocument_AllEnginesFailed(t *testing.T) {
	a := &stubEngine{name: "a", err: errors.New("boom")}
	b := &stubEngine{name: "b", err: errors.New("also boom")}
	p := NewProcessor(nil, textsource.NewSimulated(), a, b)

	_, err := p.ProcessDocument(context.Background(), validPDF(), "application/pdf", "doc.pdf")
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PIPELINE_DEFECT", appErr.Code)
}

func TestProcessDocument_SanitizesResult(t *testing.T) {
	dirty := &stubEngine{
		name: "dirty",
		result: engine.Result{
			DocumentType: constants.Other,
			Fields:       map[string]any{"cliente": "X", "_metadata": "reserved"},
			Confidence:   1.7,
			EngineName:   "dirty",
		},
	}
	p := NewProcessor(nil, textsource.NewSimulated(), dirty)

	res, err := p.ProcessDocument(context.Background(), validPDF(), "application/pdf", "doc.pdf")
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Confidence)
	assert.NotContains(t, res.Fields, "_metadata")
	assert.Contains(t, res.Fields, "cliente")
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		mime     string
		filename string
		wantErr  bool
	}{
		{"valid pdf", validPDF(), "application/pdf", "doc.pdf", false},
		{"mime with params", validPDF(), "text/plain; charset=utf-8", "doc.txt", false},
		{"empty content", nil, "application/pdf", "doc.pdf", true},
		{"empty filename", validPDF(), "application/pdf", "", true},
		{"unsupported mime", validPDF(), "application/zip", "doc.zip", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.content, tt.mime, tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessDocument_RejectsInvalidInputBeforeEngines(t *testing.T) {
	eng := &stubEngine{name: "any"}
	p := NewProcessor(nil, textsource.NewSimulated(), eng)

	_, err := p.ProcessDocument(context.Background(), nil, "application/pdf", "doc.pdf")
	require.Error(t, err)
	assert.Equal(t, 0, eng.calls)
}
