package gemini

import (
	"strings"

	"certidocs-backend/constants"
	"certidocs-backend/internal/schema"
)

const (
	classifyTextLimit = 1000
	extractTextLimit  = 4000
)

// BuildClassificationPrompt produces the closed-label classification prompt.
// Pure function: same inputs, same prompt.
func BuildClassificationPrompt(text, filename string) string {
	var b strings.Builder
	b.WriteString("Analiza el siguiente texto y nombre de archivo para clasificar el tipo de documento.\n\n")
	b.WriteString("Nombre del archivo: ")
	b.WriteString(filename)
	b.WriteString("\nTexto extraído: ")
	b.WriteString(truncate(text, classifyTextLimit))
	b.WriteString("\n\nClasifica como una de estas opciones: ")
	b.WriteString(strings.Join(constants.DocumentTypes(), ", "))
	b.WriteString(".\n\n")
	b.WriteString("CONTRACT_CERTIFICATION es para certificaciones de experiencia laboral, ejecución contractual, ")
	b.WriteString("cumplimiento de contratos o documentos similares que certifiquen la experiencia en contratos.\n\n")
	b.WriteString("Responde SOLO con una de estas palabras, nada más.")
	return b.String()
}

// BuildExtractionPrompt embeds the target schema as a JSON template and
// instructs JSON-only output. Pure function, unit-testable without any
// network call.
func BuildExtractionPrompt(dt constants.DocumentType, fields []schema.Field, text string) string {
	var b strings.Builder
	b.WriteString("Extrae información estructurada del siguiente documento de tipo ")
	b.WriteString(string(dt))
	b.WriteString(".\nResponde EXCLUSIVAMENTE con JSON válido usando este esquema:\n")
	b.WriteString(templateJSON(fields))
	b.WriteString("\n")

	if dt == constants.ContractCertification {
		b.WriteString(`
Para documentos de tipo CONTRACT_CERTIFICATION, es CRÍTICO que extraigas:
- cliente: nombre del cliente o contratante
- contratista: nombre del contratista o proveedor
- fechaInicio y fechaFin: en formato YYYY-MM-DD
- objeto: descripción del objeto contractual
- numeroContrato: número de referencia del contrato
- valorSinIva: valor numérico sin IVA
- valorConIva: valor numérico con IVA incluido
- valorSMMLV: valor sin IVA dividido por 1,300,000 (SMMLV 2025)
- valorSMMLVIva: valor con IVA dividido por 1,300,000 (SMMLV 2025)
- duracionMeses: duración en meses (calculado de las fechas)
- actividades: array de actividades realizadas
- firmante: persona que firma la certificación
- cargoFirmante: cargo del firmante
- nitContratista: NIT del contratista si está disponible
`)
	}

	b.WriteString("\nTexto del documento:\n")
	b.WriteString(truncate(text, extractTextLimit))
	b.WriteString("\n\nIMPORTANTE: Responde solo con JSON válido, sin texto adicional.")
	return b.String()
}

// templateJSON renders a field list as the JSON template the model should
// fill in: field name mapped to a type hint.
func templateJSON(fields []schema.Field) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(`  "`)
		b.WriteString(f.Name)
		b.WriteString(`": `)
		b.WriteString(typeHint(f.Type))
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func typeHint(t schema.FieldType) string {
	switch t {
	case schema.TypeNumber, schema.TypeCurrency, schema.TypePercentage:
		return `"number"`
	case schema.TypeDate:
		return `"YYYY-MM-DD"`
	case schema.TypeBoolean:
		return `"boolean"`
	case schema.TypeArray:
		return `["string"]`
	case schema.TypeNumbers:
		return `["number"]`
	default:
		return `"string"`
	}
}
