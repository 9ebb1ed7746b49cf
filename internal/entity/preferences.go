package entity

import (
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/schema"
)

// UserPreferences holds the field schema a user declared during onboarding.
// Read-only for the extraction pipeline; mutated only by explicit updates.
type UserPreferences struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	UseCase      constants.UseCase `json:"use_case"`
	CustomFields []schema.Field    `json:"custom_fields,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
