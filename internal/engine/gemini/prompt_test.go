package gemini

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"certidocs-backend/constants"
	"certidocs-backend/internal/schema"
)

func TestBuildClassificationPrompt(t *testing.T) {
	prompt := BuildClassificationPrompt("texto del documento", "cert.pdf")

	assert.Contains(t, prompt, "cert.pdf")
	assert.Contains(t, prompt, "texto del documento")
	for _, label := range constants.DocumentTypes() {
		assert.Contains(t, prompt, label)
	}
}

func TestBuildClassificationPrompt_TruncatesText(t *testing.T) {
	long := strings.Repeat("x", 5000)
	prompt := BuildClassificationPrompt(long, "doc.pdf")
	assert.Less(t, len(prompt), 2500)
}

func TestBuildClassificationPrompt_Pure(t *testing.T) {
	a := BuildClassificationPrompt("mismo texto", "a.pdf")
	b := BuildClassificationPrompt("mismo texto", "a.pdf")
	assert.Equal(t, a, b)
}

func TestBuildExtractionPrompt(t *testing.T) {
	fields := schema.FieldsFor(constants.ContractCertification)
	prompt := BuildExtractionPrompt(constants.ContractCertification, fields, "texto")

	assert.Contains(t, prompt, string(constants.ContractCertification))
	assert.Contains(t, prompt, `"cliente"`)
	assert.Contains(t, prompt, `"valorSinIva"`)
	assert.Contains(t, prompt, "valorSMMLV")
	assert.Contains(t, prompt, "JSON")
}

func TestBuildExtractionPrompt_NoCertBlockForOtherTypes(t *testing.T) {
	fields := schema.FieldsFor(constants.Invoice)
	prompt := BuildExtractionPrompt(constants.Invoice, fields, "texto")

	assert.Contains(t, prompt, `"numeroFactura"`)
	assert.NotContains(t, prompt, "CRÍTICO")
}

func TestBuildExtractionPrompt_PerTypeSchemas(t *testing.T) {
	tests := []struct {
		dt   constants.DocumentType
		want string
	}{
		{constants.Receipt, `"receiptNumber"`},
		{constants.Contract, `"contractNumber"`},
		{constants.Legal, `"caseNumber"`},
		{constants.Other, `"keyPoints"`},
	}
	for _, tt := range tests {
		prompt := BuildExtractionPrompt(tt.dt, schema.FieldsFor(tt.dt), "texto")

		assert.Contains(t, prompt, tt.want, "type %s", tt.dt)
		assert.NotContains(t, prompt, `"valorSinIva"`, "type %s", tt.dt)
		assert.NotContains(t, prompt, "CRÍTICO", "type %s", tt.dt)
	}
}

func TestTemplateJSON_TypeHints(t *testing.T) {
	out := templateJSON([]schema.Field{
		{Name: "monto", Type: schema.TypeCurrency},
		{Name: "fecha", Type: schema.TypeDate},
		{Name: "items", Type: schema.TypeArray},
	})

	assert.Contains(t, out, `"monto": "number"`)
	assert.Contains(t, out, `"fecha": "YYYY-MM-DD"`)
	assert.Contains(t, out, `"items": ["string"]`)

	out = templateJSON([]schema.Field{{Name: "amounts", Type: schema.TypeNumbers}})
	assert.Contains(t, out, `"amounts": ["number"]`)
}
