package constants

import "strings"

// UseCase identifies which predefined field schema a user onboarded with.
type UseCase string

const (
	UseCaseContractCertification UseCase = "CONTRACT_CERTIFICATION"
	UseCaseInvoiceProcessing     UseCase = "INVOICE_PROCESSING"
	UseCaseLegalDocuments        UseCase = "LEGAL_DOCUMENTS"
	UseCaseCustom                UseCase = "CUSTOM"
)

// DefaultUseCase is assumed for users who never completed onboarding.
const DefaultUseCase = UseCaseContractCertification

var allUseCases = []UseCase{
	UseCaseContractCertification,
	UseCaseInvoiceProcessing,
	UseCaseLegalDocuments,
	UseCaseCustom,
}

// IsUseCase reports whether input names a valid onboarding use case.
func IsUseCase(input string) bool {
	normalized := UseCase(strings.ToUpper(strings.TrimSpace(input)))
	for _, uc := range allUseCases {
		if normalized == uc {
			return true
		}
	}
	return false
}
