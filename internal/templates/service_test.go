package templates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/schema"
)

func TestGetPredefinedSchema(t *testing.T) {
	svc := NewService(nil, repository.NewMemoryStore().Templates)

	def := svc.GetPredefinedSchema("LEGAL_DOCUMENTS")
	assert.Equal(t, "Documentos Legales", def.Name)

	unknown := svc.GetPredefinedSchema("whatever")
	assert.Equal(t, "Certificación Contractual", unknown.Name, "unknown use cases get the default schema")
}

func TestMaterializeUserTemplate_Predefined(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewService(nil, store.Templates)
	userID := uuid.New()

	tpl, err := svc.MaterializeUserTemplate(context.Background(), userID, constants.UseCaseInvoiceProcessing, nil)
	require.NoError(t, err)

	assert.Equal(t, "Procesamiento de Facturas", tpl.Name)
	assert.Equal(t, string(constants.UseCaseInvoiceProcessing), tpl.Category)
	assert.False(t, tpl.IsDefault)
	assert.Len(t, tpl.Fields, 8)

	listed, err := svc.ListUserTemplates(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, tpl.ID, listed[0].ID)
}

func TestMaterializeUserTemplate_CustomRequiresFields(t *testing.T) {
	svc := NewService(nil, repository.NewMemoryStore().Templates)

	_, err := svc.MaterializeUserTemplate(context.Background(), uuid.New(), constants.UseCaseCustom, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	tpl, err := svc.MaterializeUserTemplate(context.Background(), uuid.New(), constants.UseCaseCustom,
		[]schema.Field{{Name: "referencia", Type: schema.TypeText}})
	require.NoError(t, err)
	assert.Equal(t, "Plantilla Personalizada", tpl.Name)
	assert.Len(t, tpl.Fields, 1)
}
