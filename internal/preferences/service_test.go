package preferences

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
	"certidocs-backend/internal/templates"
)

func newTestService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	tpls := templates.NewService(nil, store.Templates)
	return NewService(nil, store.Preferences, tpls), store
}

func TestSetPreferences_Predefined(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	prefs, err := svc.SetPreferences(ctx, userID, "contract_certification", nil)
	require.NoError(t, err)
	assert.Equal(t, constants.UseCaseContractCertification, prefs.UseCase)
	assert.Empty(t, prefs.CustomFields)

	tpls, err := store.Templates.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, "Certificación Contractual", tpls[0].Name)
	assert.True(t, tpls[0].IsDefault)
	assert.Len(t, tpls[0].Fields, 14)
}

func TestSetPreferences_PredefinedIgnoresSubmittedFields(t *testing.T) {
	svc, _ := newTestService(t)

	prefs, err := svc.SetPreferences(context.Background(), uuid.New(), "INVOICE_PROCESSING",
		[]schema.Field{{Name: "ignored", Type: schema.TypeText}})
	require.NoError(t, err)
	assert.Empty(t, prefs.CustomFields)
}

func TestSetPreferences_Custom(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	fields := []schema.Field{
		{Name: "referencia", Type: schema.TypeText, Required: true},
		{Name: "monto", Type: schema.TypeCurrency},
	}
	prefs, err := svc.SetPreferences(ctx, userID, "CUSTOM", fields)
	require.NoError(t, err)
	assert.Equal(t, constants.UseCaseCustom, prefs.UseCase)
	assert.Len(t, prefs.CustomFields, 2)

	tpls, err := store.Templates.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, fields, tpls[0].Fields)
	assert.False(t, tpls[0].IsDefault)
}

func TestSetPreferences_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.SetPreferences(ctx, userID, "NOT_A_USE_CASE", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.SetPreferences(ctx, userID, "CUSTOM", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput, "custom needs fields")

	_, err = svc.SetPreferences(ctx, userID, "CUSTOM", []schema.Field{{Name: "  "}})
	assert.ErrorIs(t, err, common.ErrInvalidInput, "blank field name")

	_, err = svc.SetPreferences(ctx, userID, "CUSTOM", []schema.Field{
		{Name: "dup"}, {Name: "dup"},
	})
	assert.ErrorIs(t, err, common.ErrInvalidInput, "duplicate field name")
}

func TestSetPreferences_UpsertReplacesExisting(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.SetPreferences(ctx, userID, "INVOICE_PROCESSING", nil)
	require.NoError(t, err)
	_, err = svc.SetPreferences(ctx, userID, "LEGAL_DOCUMENTS", nil)
	require.NoError(t, err)

	prefs, err := svc.GetPreferences(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, constants.UseCaseLegalDocuments, prefs.UseCase)
}

func TestGetPreferences_NilWhenAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	prefs, err := svc.GetPreferences(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, prefs)
}
