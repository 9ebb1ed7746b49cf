package constants

// DocStatus is the canonical lifecycle status for rows in documents.
type DocStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    DocStatus = "PENDING"    // uploaded, not yet dispatched
	StatusProcessing DocStatus = "PROCESSING" // extraction in progress
	StatusCompleted  DocStatus = "COMPLETED"  // extraction finished, record written
	StatusFailed     DocStatus = "FAILED"     // terminal failure
)
