// Package repository persists documents, processing records, preferences,
// and templates. Implementations exist for Postgres (pgx), sqlite (local
// runs), and memory (tests).
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/entity"
)

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Type   string // document type, empty or "all" matches everything
	Status string // lifecycle status, empty or "all" matches everything
	Search string // case-insensitive filename substring
	Limit  int
	Offset int
}

// DocumentMetrics aggregates a user's processing history.
type DocumentMetrics struct {
	Total         int                            `json:"total"`
	ByStatus      map[constants.DocStatus]int    `json:"by_status"`
	ByType        map[constants.DocumentType]int `json:"by_type"`
	AvgConfidence float64                        `json:"avg_confidence"`
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, userID uuid.UUID, filter DocumentFilter) ([]*entity.Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocStatus, documentType constants.DocumentType, processedAt *time.Time) error
	Metrics(ctx context.Context, userID uuid.UUID) (*DocumentMetrics, error)
}

type ProcessingRepository interface {
	Create(ctx context.Context, rec *entity.ProcessingRecord) error
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error)
}

type PreferencesRepository interface {
	// GetByUserID returns (nil, nil) when the user has no stored preferences.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserPreferences, error)
	Upsert(ctx context.Context, prefs *entity.UserPreferences) error
}

type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.ExtractionTemplate) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ExtractionTemplate, error)
}

// Store bundles the repositories one backend provides.
type Store struct {
	Documents   DocumentRepository
	Processing  ProcessingRepository
	Preferences PreferencesRepository
	Templates   TemplateRepository
}
