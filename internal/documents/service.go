// Package documents drives the document lifecycle: upload, asynchronous
// extraction, and retrieval of results.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/metrics"
	"certidocs-backend/internal/personalize"
	"certidocs-backend/internal/pipeline"
	"certidocs-backend/internal/repository"
)

// UploadInput is the validated upload triple plus ownership.
type UploadInput struct {
	UserID   uuid.UUID
	Filename string
	MimeType string
	Content  []byte
}

// Result pairs a document with its latest processing record, when one
// exists.
type Result struct {
	Document   *entity.Document         `json:"document"`
	Processing *entity.ProcessingRecord `json:"processing,omitempty"`
}

type Service struct {
	logger     *slog.Logger
	store      *repository.Store
	processor  *pipeline.Processor
	prefs      repository.PreferencesRepository
	uploadPath string
	timeout    time.Duration

	wg sync.WaitGroup
}

func NewService(logger *slog.Logger, store *repository.Store, processor *pipeline.Processor, uploadPath string, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Service{
		logger:     logger,
		store:      store,
		processor:  processor,
		prefs:      store.Preferences,
		uploadPath: uploadPath,
		timeout:    timeout,
	}
}

// Upload validates and stores the file, records the document as PENDING,
// and dispatches extraction in the background. The returned document is the
// pre-processing snapshot; callers poll Status for completion.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*entity.Document, error) {
	if err := pipeline.ValidateInput(in.Content, in.MimeType, in.Filename); err != nil {
		return nil, err
	}
	if in.UserID == uuid.Nil {
		return nil, common.NewAppError("INVALID_INPUT", "user id is required", common.ErrInvalidInput)
	}

	doc := &entity.Document{
		ID:           uuid.New(),
		UserID:       in.UserID,
		Filename:     in.Filename,
		FileSize:     int64(len(in.Content)),
		FileType:     in.MimeType,
		DocumentType: constants.Other,
		Status:       constants.StatusPending,
		UploadedAt:   time.Now().UTC(),
	}

	fileURL, err := s.persistFile(doc.ID, in.Filename, in.Content)
	if err != nil {
		return nil, err
	}
	doc.FileURL = fileURL

	if err := s.store.Documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("document.uploaded",
		"document_id", doc.ID,
		"user_id", in.UserID,
		"filename", in.Filename,
		"size_bytes", doc.FileSize,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Processing outlives the upload request.
		pctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Process(pctx, doc, in.Content)
	}()

	return doc, nil
}

// Process runs extraction for a stored document and persists the outcome.
// Exported so one-shot CLI runs can process synchronously.
func (s *Service) Process(ctx context.Context, doc *entity.Document, content []byte) {
	started := time.Now().UTC()
	if err := s.store.Documents.UpdateStatus(ctx, doc.ID, constants.StatusProcessing, "", nil); err != nil {
		s.logger.Error("document.status_update_failed", "document_id", doc.ID, "error", err)
	}

	raw, err := s.processor.ProcessDocument(ctx, content, doc.FileType, doc.Filename)
	if err != nil {
		s.recordFailure(ctx, doc, started, err)
		return
	}

	prefs, perr := s.prefs.GetByUserID(ctx, doc.UserID)
	if perr != nil {
		s.logger.Warn("document.preferences_load_failed", "document_id", doc.ID, "error", perr)
		prefs = nil
	}
	personalized := personalize.Apply(raw, prefs)

	payload := make(map[string]any, len(personalized.Fields)+1)
	for k, v := range personalized.Fields {
		payload[k] = v
	}
	payload["_metadata"] = map[string]any{
		"documentType":      string(personalized.DocumentType),
		"userFieldsMatched": personalized.UserFieldsMatched,
	}
	extracted, merr := json.Marshal(payload)
	if merr != nil {
		s.recordFailure(ctx, doc, started, common.WrapError(merr, "encode extracted data"))
		return
	}

	now := time.Now().UTC()
	confidence := personalized.Confidence
	engineName := personalized.EngineName
	rec := &entity.ProcessingRecord{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		ExtractedJSON: extracted,
		Confidence:    &confidence,
		EngineName:    &engineName,
		StartedAt:     started,
		CompletedAt:   now,
	}
	if err := s.store.Processing.Create(ctx, rec); err != nil {
		s.recordFailure(ctx, doc, started, err)
		return
	}
	if err := s.store.Documents.UpdateStatus(ctx, doc.ID, constants.StatusCompleted, personalized.DocumentType, &now); err != nil {
		s.logger.Error("document.status_update_failed", "document_id", doc.ID, "error", err)
	}

	metrics.DocumentsProcessed.WithLabelValues(string(constants.StatusCompleted)).Inc()
	s.logger.Info("document.processed",
		"document_id", doc.ID,
		"engine", engineName,
		"document_type", personalized.DocumentType,
		"confidence", confidence,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
}

func (s *Service) recordFailure(ctx context.Context, doc *entity.Document, started time.Time, cause error) {
	now := time.Now().UTC()
	msg := cause.Error()
	rec := &entity.ProcessingRecord{
		ID:           uuid.New(),
		DocumentID:   doc.ID,
		ErrorMessage: &msg,
		StartedAt:    started,
		CompletedAt:  now,
	}
	if err := s.store.Processing.Create(ctx, rec); err != nil {
		s.logger.Error("document.failure_record_failed", "document_id", doc.ID, "error", err)
	}
	if err := s.store.Documents.UpdateStatus(ctx, doc.ID, constants.StatusFailed, "", &now); err != nil {
		s.logger.Error("document.status_update_failed", "document_id", doc.ID, "error", err)
	}
	metrics.DocumentsProcessed.WithLabelValues(string(constants.StatusFailed)).Inc()
	s.logger.Error("document.processing_failed", "document_id", doc.ID, "error", cause)
}

// Wait blocks until in-flight background processing finishes. Called during
// shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns a document with its latest processing record, scoped to the
// owning user.
func (s *Service) Get(ctx context.Context, userID, documentID uuid.UUID) (*Result, error) {
	doc, err := s.store.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, common.ErrNotFound
	}
	out := &Result{Document: doc}
	rec, err := s.store.Processing.LatestForDocument(ctx, documentID)
	if err == nil {
		out.Processing = rec
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// Status reports lifecycle state without the extraction payload.
func (s *Service) Status(ctx context.Context, userID, documentID uuid.UUID) (constants.DocStatus, error) {
	doc, err := s.store.Documents.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.UserID != userID {
		return "", common.ErrNotFound
	}
	return doc.Status, nil
}

// List returns a filtered page of the user's documents plus the unpaged
// total.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter repository.DocumentFilter) ([]*entity.Document, int, error) {
	return s.store.Documents.List(ctx, userID, filter)
}

// Metrics aggregates the user's processing history.
func (s *Service) Metrics(ctx context.Context, userID uuid.UUID) (*repository.DocumentMetrics, error) {
	return s.store.Documents.Metrics(ctx, userID)
}

func (s *Service) persistFile(id uuid.UUID, filename string, content []byte) (string, error) {
	if s.uploadPath == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.uploadPath, 0o755); err != nil {
		return "", common.WrapError(err, "create upload directory")
	}
	name := id.String()
	if ext := constants.NormalizeExt(filepath.Ext(filename)); ext != "" {
		name += "." + ext
	}
	dest := filepath.Join(s.uploadPath, name)
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", common.WrapError(err, "store uploaded file")
	}
	return dest, nil
}
