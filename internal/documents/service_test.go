package documents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/engine/fallback"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/pipeline"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/schema"
	"certidocs-backend/internal/textsource"
)

func newTestService(t *testing.T, chain ...engine.Engine) (*Service, *repository.Store) {
	t.Helper()
	if len(chain) == 0 {
		chain = []engine.Engine{fallback.New(nil, 1300000)}
	}
	store := repository.NewMemoryStore()
	processor := pipeline.NewProcessor(nil, textsource.NewSimulated(), chain...)
	svc := NewService(nil, store, processor, t.TempDir(), time.Minute)
	return svc, store
}

func certUpload(userID uuid.UUID) UploadInput {
	return UploadInput{
		UserID:   userID,
		Filename: "certificacion.pdf",
		MimeType: "application/pdf",
		Content:  []byte("CERTIFICACION DE EXPERIENCIA ABSICOL"),
	}
}

func TestUpload_CreatesPendingAndCompletes(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	doc, err := svc.Upload(ctx, certUpload(userID))
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPending, doc.Status)
	assert.NotEqual(t, uuid.Nil, doc.ID)

	svc.Wait()

	stored, err := store.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, stored.Status)
	assert.Equal(t, constants.ContractCertification, stored.DocumentType)
	require.NotNil(t, stored.ProcessedAt)

	rec, err := store.Processing.LatestForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.EngineName)
	assert.Equal(t, fallback.EngineName, *rec.EngineName)
	require.NotNil(t, rec.Confidence)
	assert.Greater(t, *rec.Confidence, 0.0)
}

func TestUpload_StoredFileKeepsNormalizedExtension(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := certUpload(uuid.New())
	in.Filename = "CERTIFICACION.PDF"
	doc, err := svc.Upload(ctx, in)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.FileURL, doc.ID.String()+".pdf"), "got %s", doc.FileURL)

	in = certUpload(uuid.New())
	in.Filename = "certificacion"
	in.MimeType = "text/plain"
	doc, err = svc.Upload(ctx, in)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.FileURL, doc.ID.String()), "got %s", doc.FileURL)

	svc.Wait()
}

func TestUpload_RejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), UploadInput{
		UserID:   uuid.New(),
		Filename: "archive.zip",
		MimeType: "application/zip",
		Content:  []byte("data"),
	})
	require.Error(t, err)

	_, err = svc.Upload(context.Background(), UploadInput{
		Filename: "doc.pdf",
		MimeType: "application/pdf",
		Content:  []byte("data"),
	})
	require.Error(t, err, "missing user id")
}

func TestProcess_EmbedsMetadata(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	doc, err := svc.Upload(ctx, certUpload(userID))
	require.NoError(t, err)
	svc.Wait()

	rec, err := store.Processing.LatestForDocument(ctx, doc.ID)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.ExtractedJSON, &payload))

	meta, ok := payload["_metadata"].(map[string]any)
	require.True(t, ok, "extracted data must carry _metadata")
	assert.Equal(t, string(constants.ContractCertification), meta["documentType"])
	assert.NotEmpty(t, meta["userFieldsMatched"])
	assert.Contains(t, payload, "cliente")
}

func TestProcess_AppliesUserPreferences(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, store.Preferences.Upsert(ctx, &entity.UserPreferences{
		ID:      uuid.New(),
		UserID:  userID,
		UseCase: constants.UseCaseCustom,
		CustomFields: []schema.Field{
			{Name: "cliente", Type: schema.TypeText, Required: true},
			{Name: "valorSinIva", Type: schema.TypeCurrency, Required: true},
		},
	}))

	doc, err := svc.Upload(ctx, certUpload(userID))
	require.NoError(t, err)
	svc.Wait()

	rec, err := store.Processing.LatestForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.EngineName)
	assert.Equal(t, fallback.EngineName+"_personalized", *rec.EngineName)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.ExtractedJSON, &payload))
	assert.Contains(t, payload, "cliente")
	assert.Contains(t, payload, "valorSinIva")
	assert.NotContains(t, payload, "contratista", "undeclared fields are dropped")
}

type brokenEngine struct{}

func (brokenEngine) Name() string { return "broken" }

func (brokenEngine) Extract(context.Context, string, string) (engine.Result, error) {
	return engine.Result{}, errors.New("engine exploded")
}

func TestProcess_FailureIsRecorded(t *testing.T) {
	svc, store := newTestService(t, brokenEngine{})
	userID := uuid.New()
	ctx := context.Background()

	doc, err := svc.Upload(ctx, certUpload(userID))
	require.NoError(t, err)
	svc.Wait()

	stored, err := store.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, stored.Status)

	rec, err := store.Processing.LatestForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "all extraction engines failed")
	assert.Nil(t, rec.Confidence)
}

func TestGet_ScopedToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()

	doc, err := svc.Upload(ctx, certUpload(owner))
	require.NoError(t, err)
	svc.Wait()

	res, err := svc.Get(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.Document.ID)
	assert.NotNil(t, res.Processing)

	_, err = svc.Get(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStatus(t *testing.T) {
	svc, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()

	doc, err := svc.Upload(ctx, certUpload(owner))
	require.NoError(t, err)
	svc.Wait()

	status, err := svc.Status(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, status)

	_, err = svc.Status(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListAndMetrics(t *testing.T) {
	svc, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(ctx, certUpload(owner))
		require.NoError(t, err)
	}
	svc.Wait()

	docs, total, err := svc.List(ctx, owner, repository.DocumentFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, docs, 2)

	filtered, _, err := svc.List(ctx, owner, repository.DocumentFilter{Search: "nomatch"})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	m, err := svc.Metrics(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 3, m.ByStatus[constants.StatusCompleted])
}
