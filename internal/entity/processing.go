package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProcessingRecord captures one extraction run over a document.
// Exactly one of ExtractedJSON or ErrorMessage is set.
type ProcessingRecord struct {
	ID            uuid.UUID       `json:"id"`
	DocumentID    uuid.UUID       `json:"document_id"`
	ExtractedJSON json.RawMessage `json:"extracted_data,omitempty"`
	Confidence    *float64        `json:"confidence,omitempty"`
	EngineName    *string         `json:"processing_engine,omitempty"`
	ErrorMessage  *string         `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}
