package entity

import (
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
)

// Document represents an uploaded document for data transfer between layers.
type Document struct {
	ID           uuid.UUID              `json:"id"`
	UserID       uuid.UUID              `json:"user_id"`
	Filename     string                 `json:"filename"`
	FileURL      string                 `json:"file_url"`
	FileSize     int64                  `json:"file_size"`
	FileType     string                 `json:"file_type"`
	DocumentType constants.DocumentType `json:"document_type"`
	Status       constants.DocStatus    `json:"status"`
	UploadedAt   time.Time              `json:"uploaded_at"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty"`
}
