package personalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"certidocs-backend/constants"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/schema"
)

func baseResult() engine.Result {
	return engine.Result{
		DocumentType: constants.ContractCertification,
		Fields: map[string]any{
			"cliente":     "MUNICIPIO",
			"contratista": "OBRAS S.A.S.",
			"valorSinIva": float64(500000000),
		},
		Confidence: 0.8,
		EngineName: "gemini",
	}
}

func TestApply_NilPreferencesPassthrough(t *testing.T) {
	res := Apply(baseResult(), nil)

	assert.Equal(t, "gemini", res.EngineName, "no suffix without preferences")
	assert.Equal(t, 0.8, res.Confidence)
	assert.Len(t, res.Fields, 3)
	assert.Equal(t, []string{"cliente", "contratista", "valorSinIva"}, res.UserFieldsMatched)
}

func TestApply_FiltersToDeclaredFields(t *testing.T) {
	prefs := &entity.UserPreferences{
		UseCase: constants.UseCaseCustom,
		CustomFields: []schema.Field{
			{Name: "cliente", Type: schema.TypeText, Required: true},
			{Name: "valorSinIva", Type: schema.TypeCurrency, Required: true},
			{Name: "noExiste", Type: schema.TypeText, Required: false},
		},
	}

	res := Apply(baseResult(), prefs)

	assert.Equal(t, "gemini"+Suffix, res.EngineName)
	assert.Len(t, res.Fields, 2)
	assert.NotContains(t, res.Fields, "contratista")
	assert.Equal(t, []string{"cliente", "valorSinIva"}, res.UserFieldsMatched)
	// Both required fields matched, so confidence is unchanged.
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestApply_MissingRequiredFieldLowersConfidence(t *testing.T) {
	prefs := &entity.UserPreferences{
		UseCase: constants.UseCaseCustom,
		CustomFields: []schema.Field{
			{Name: "cliente", Type: schema.TypeText, Required: true},
			{Name: "nitContratista", Type: schema.TypeText, Required: true},
		},
	}

	res := Apply(baseResult(), prefs)

	assert.Equal(t, []string{"cliente"}, res.UserFieldsMatched)
	assert.InDelta(t, 0.8*0.5, res.Confidence, 1e-9)
}

func TestApply_CaseSensitiveMatching(t *testing.T) {
	prefs := &entity.UserPreferences{
		UseCase: constants.UseCaseCustom,
		CustomFields: []schema.Field{
			{Name: "Cliente", Type: schema.TypeText, Required: true},
		},
	}

	res := Apply(baseResult(), prefs)

	assert.Empty(t, res.Fields)
	assert.Empty(t, res.UserFieldsMatched)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestApply_PredefinedUseCaseKeepsAllFields(t *testing.T) {
	prefs := &entity.UserPreferences{UseCase: constants.UseCaseContractCertification}

	res := Apply(baseResult(), prefs)

	assert.Equal(t, "gemini"+Suffix, res.EngineName)
	assert.Len(t, res.Fields, 3)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestApply_NoRequiredFieldsNoPenalty(t *testing.T) {
	prefs := &entity.UserPreferences{
		UseCase: constants.UseCaseCustom,
		CustomFields: []schema.Field{
			{Name: "cliente", Type: schema.TypeText, Required: false},
			{Name: "noExiste", Type: schema.TypeText, Required: false},
		},
	}

	res := Apply(baseResult(), prefs)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestBuildCustomPrompt(t *testing.T) {
	fields := []schema.Field{
		{Name: "cliente", Type: schema.TypeText, Description: "Nombre del cliente"},
		{Name: "monto", Type: schema.TypeCurrency},
	}

	prompt := BuildCustomPrompt(fields, constants.ContractCertification)

	assert.Contains(t, prompt, "cliente: Nombre del cliente")
	assert.Contains(t, prompt, "monto: Sin descripción")
	assert.Contains(t, prompt, string(constants.ContractCertification))
}
