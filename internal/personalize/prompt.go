package personalize

import (
	"strings"

	"certidocs-backend/constants"
	"certidocs-backend/internal/schema"
)

// BuildCustomPrompt renders an extraction prompt restricted to the user's
// declared fields, for callers that want inference scoped to their schema
// instead of the registry's.
func BuildCustomPrompt(fields []schema.Field, dt constants.DocumentType) string {
	var b strings.Builder
	b.WriteString("Extrae SOLO la siguiente información del documento.\n")
	b.WriteString("Si no encuentras algún campo, déjalo vacío o usa null.\n\n")
	b.WriteString("Campos requeridos por el usuario:\n")
	for _, f := range fields {
		desc := f.Description
		if desc == "" {
			desc = "Sin descripción"
		}
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(desc)
		b.WriteString(" (tipo: ")
		b.WriteString(string(f.Type))
		b.WriteString(")\n")
	}
	b.WriteString("\nTipo de documento: ")
	b.WriteString(string(dt))
	b.WriteString("\n\nResponde EXCLUSIVAMENTE con un JSON que contenga estos campos.\n")
	b.WriteString("Para campos numéricos, convierte a números.\n")
	b.WriteString("Para fechas, usa formato YYYY-MM-DD.")
	return b.String()
}
