package constants

import "strings"

// DocumentType is the closed classification set for processed documents.
type DocumentType string

const (
	ContractCertification DocumentType = "CONTRACT_CERTIFICATION"
	Invoice               DocumentType = "INVOICE"
	Receipt               DocumentType = "RECEIPT"
	Contract              DocumentType = "CONTRACT"
	Legal                 DocumentType = "LEGAL"
	Other                 DocumentType = "OTHER"
)

// DefaultDocumentType is the single documented default for both unmatched
// classifier input and unknown use-case identifiers. The corpus this system
// serves is government contract certifications, so the bias lives here and
// nowhere else.
const DefaultDocumentType = ContractCertification

var allDocumentTypes = []DocumentType{
	ContractCertification,
	Invoice,
	Receipt,
	Contract,
	Legal,
	Other,
}

func DocumentTypes() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// IsDocumentType reports whether input is a member of the closed set.
func IsDocumentType(input string) bool {
	_, ok := CanonicalizeDocumentType(input)
	return ok
}

// CanonicalizeDocumentType maps arbitrary input onto the closed set.
// Unrecognized input yields Other with ok=false.
func CanonicalizeDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return Other, false
	}
	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return Other, false
}
