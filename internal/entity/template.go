package entity

import (
	"time"

	"github.com/google/uuid"

	"certidocs-backend/internal/schema"
)

// ExtractionTemplate is a persisted, per-user copy of a field schema.
type ExtractionTemplate struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Fields      []schema.Field `json:"fields"`
	Category    string         `json:"category"`
	IsDefault   bool           `json:"is_default"`
	CreatedAt   time.Time      `json:"created_at"`
}
