package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeDocumentType(t *testing.T) {
	tests := []struct {
		input  string
		want   DocumentType
		wantOK bool
	}{
		{"CONTRACT_CERTIFICATION", ContractCertification, true},
		{"  invoice ", Invoice, true},
		{"legal", Legal, true},
		{"SOMETHING_ELSE", Other, false},
		{"", Other, false},
	}
	for _, tt := range tests {
		got, ok := CanonicalizeDocumentType(tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
	}
}

func TestDocumentTypes(t *testing.T) {
	types := DocumentTypes()
	assert.Len(t, types, 6)
	assert.Contains(t, types, "CONTRACT_CERTIFICATION")
	assert.Contains(t, types, "OTHER")
}

func TestIsUseCase(t *testing.T) {
	assert.True(t, IsUseCase("custom"))
	assert.True(t, IsUseCase(" CONTRACT_CERTIFICATION "))
	assert.False(t, IsUseCase("RECEIPTS"))
	assert.False(t, IsUseCase(""))
}

func TestMimeAllowed(t *testing.T) {
	assert.True(t, MimeAllowed("application/pdf"))
	assert.True(t, MimeAllowed("TEXT/PLAIN; charset=utf-8"))
	assert.False(t, MimeAllowed("application/zip"))
	assert.False(t, MimeAllowed(""))
}
