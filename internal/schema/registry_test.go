package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certidocs-backend/constants"
)

func TestGetSchema_Predefined(t *testing.T) {
	def := GetSchema("CONTRACT_CERTIFICATION")
	assert.Equal(t, "Certificación Contractual", def.Name)
	assert.Len(t, def.Fields, 14)

	names := make(map[string]Field, len(def.Fields))
	for _, f := range def.Fields {
		names[f.Name] = f
	}
	for _, required := range []string{"cliente", "contratista", "fechaInicio", "fechaFin", "objeto", "valorSinIva", "valorConIva"} {
		f, ok := names[required]
		require.True(t, ok, "missing field %s", required)
		assert.True(t, f.Required, "%s should be required", required)
	}
	assert.False(t, names["valorSMMLV"].Required)
	assert.Equal(t, TypeArray, names["actividades"].Type)
}

func TestGetSchema_NormalizesInput(t *testing.T) {
	def := GetSchema("  invoice_processing ")
	assert.Equal(t, "Procesamiento de Facturas", def.Name)
}

func TestGetSchema_UnknownFallsBackToDefault(t *testing.T) {
	def := GetSchema("NOT_A_USE_CASE")
	assert.Equal(t, GetSchema(string(constants.UseCaseContractCertification)).Name, def.Name)
}

func TestFieldsFor(t *testing.T) {
	tests := []struct {
		dt   constants.DocumentType
		want string
	}{
		{constants.ContractCertification, "cliente"},
		{constants.Invoice, "numeroFactura"},
		{constants.Receipt, "receiptNumber"},
		{constants.Contract, "contractNumber"},
		{constants.Legal, "caseNumber"},
		{constants.Other, "keyPoints"},
		{constants.DocumentType("UNRECOGNIZED"), "cliente"}, // default applies
	}
	for _, tt := range tests {
		fields := FieldsFor(tt.dt)
		found := false
		for _, f := range fields {
			if f.Name == tt.want {
				found = true
				break
			}
		}
		assert.True(t, found, "type %s should include %s", tt.dt, tt.want)
	}
}

func TestFieldsFor_TypesStayApart(t *testing.T) {
	// A receipt schema must not drag certification fields into the
	// extraction prompt, and vice versa.
	for _, dt := range []constants.DocumentType{
		constants.Receipt, constants.Contract, constants.Legal, constants.Other,
	} {
		for _, f := range FieldsFor(dt) {
			assert.NotEqual(t, "valorSinIva", f.Name, "type %s leaked a certification field", dt)
			assert.NotEqual(t, "cliente", f.Name, "type %s leaked a certification field", dt)
		}
	}
}

func TestRequiredFields(t *testing.T) {
	fields := []Field{
		{Name: "a", Required: true},
		{Name: "b", Required: false},
		{Name: "c", Required: true},
	}
	out := RequiredFields(fields)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, "c", out[1].Name)
}

func TestBuildJSONSchema(t *testing.T) {
	fields := []Field{
		{Name: "cliente", Type: TypeText, Required: true},
		{Name: "valorSinIva", Type: TypeCurrency, Required: true},
		{Name: "fechaInicio", Type: TypeDate},
		{Name: "actividades", Type: TypeArray},
	}
	built := BuildJSONSchema(fields)

	assert.Equal(t, "object", built["type"])
	assert.ElementsMatch(t, []string{"cliente", "valorSinIva"}, built["required"])

	props := built["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "number"}, props["valorSinIva"])
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	built := BuildJSONSchema([]Field{
		{Name: "cliente", Type: TypeText, Required: true},
		{Name: "valorSinIva", Type: TypeCurrency},
		{Name: "fechaInicio", Type: TypeDate},
	})

	assert.NoError(t, ValidateJSONAgainstSchema(built, []byte(`{"cliente":"X","valorSinIva":100,"fechaInicio":"2024-01-01"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(built, []byte(`{"valorSinIva":100}`)), "missing required field")
	assert.Error(t, ValidateJSONAgainstSchema(built, []byte(`{"cliente":"X","valorSinIva":"mucho"}`)), "wrong type")
	assert.Error(t, ValidateJSONAgainstSchema(built, []byte(`{"cliente":"X","fechaInicio":"enero"}`)), "bad date format")
}
