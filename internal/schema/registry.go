// Package schema is the static catalog of document-type field schemas.
// The registry is assembled once at package init and never mutated, so it is
// safe for concurrent reads from any number of extraction calls.
package schema

import (
	"strings"

	"certidocs-backend/constants"
)

// FieldType enumerates the value types a schema field may declare.
type FieldType string

const (
	TypeText       FieldType = "text"
	TypeNumber     FieldType = "number"
	TypeDate       FieldType = "date"
	TypeCurrency   FieldType = "currency"
	TypePercentage FieldType = "percentage"
	TypeBoolean    FieldType = "boolean"
	TypeArray      FieldType = "array"
	TypeNumbers    FieldType = "number_array"
)

// Field describes one named, typed field of a document schema.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// Definition is a named field schema for one use case.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

var predefined = map[constants.UseCase]Definition{
	constants.UseCaseContractCertification: {
		Name:        "Certificación Contractual",
		Description: "Para documentos de certificación de experiencia contractual",
		Fields: []Field{
			{Name: "cliente", Type: TypeText, Required: true, Description: "Nombre del cliente o entidad contratante"},
			{Name: "contratista", Type: TypeText, Required: true, Description: "Nombre del contratista o proveedor"},
			{Name: "fechaInicio", Type: TypeDate, Required: true, Description: "Fecha de inicio del contrato"},
			{Name: "fechaFin", Type: TypeDate, Required: true, Description: "Fecha de finalización del contrato"},
			{Name: "objeto", Type: TypeText, Required: true, Description: "Objeto del contrato"},
			{Name: "valorSinIva", Type: TypeCurrency, Required: true, Description: "Valor del contrato sin IVA"},
			{Name: "valorConIva", Type: TypeCurrency, Required: true, Description: "Valor del contrato con IVA"},
			{Name: "valorSMMLV", Type: TypeNumber, Required: false, Description: "Valor en salarios mínimos legales vigentes"},
			{Name: "valorSMMLVIva", Type: TypeNumber, Required: false, Description: "Valor con IVA en salarios mínimos legales vigentes"},
			{Name: "duracionMeses", Type: TypeNumber, Required: false, Description: "Duración del contrato en meses"},
			{Name: "actividades", Type: TypeArray, Required: false, Description: "Actividades realizadas en el contrato"},
			{Name: "firmante", Type: TypeText, Required: false, Description: "Persona que firma el documento"},
			{Name: "cargoFirmante", Type: TypeText, Required: false, Description: "Cargo del firmante"},
			{Name: "nitContratista", Type: TypeText, Required: false, Description: "NIT del contratista"},
		},
	},
	constants.UseCaseInvoiceProcessing: {
		Name:        "Procesamiento de Facturas",
		Description: "Para extracción de datos de facturas",
		Fields: []Field{
			{Name: "numeroFactura", Type: TypeText, Required: true, Description: "Número de la factura"},
			{Name: "fechaEmision", Type: TypeDate, Required: true, Description: "Fecha de emisión"},
			{Name: "proveedor", Type: TypeText, Required: true, Description: "Nombre del proveedor"},
			{Name: "cliente", Type: TypeText, Required: true, Description: "Nombre del cliente"},
			{Name: "subtotal", Type: TypeCurrency, Required: true, Description: "Subtotal de la factura"},
			{Name: "iva", Type: TypeCurrency, Required: true, Description: "Valor del IVA"},
			{Name: "total", Type: TypeCurrency, Required: true, Description: "Total de la factura"},
			{Name: "moneda", Type: TypeText, Required: false, Description: "Moneda de la factura"},
		},
	},
	constants.UseCaseLegalDocuments: {
		Name:        "Documentos Legales",
		Description: "Para tutelas, demandas y documentos judiciales",
		Fields: []Field{
			{Name: "demandante", Type: TypeText, Required: true, Description: "Nombre del demandante"},
			{Name: "demandado", Type: TypeText, Required: true, Description: "Nombre del demandado"},
			{Name: "numeroProceso", Type: TypeText, Required: true, Description: "Número de proceso"},
			{Name: "juzgado", Type: TypeText, Required: true, Description: "Juzgado o tribunal"},
			{Name: "fechaPresentacion", Type: TypeDate, Required: true, Description: "Fecha de presentación"},
			{Name: "tipoAccion", Type: TypeText, Required: true, Description: "Tipo de acción legal"},
			{Name: "hechos", Type: TypeText, Required: false, Description: "Hechos relevantes"},
			{Name: "pretensiones", Type: TypeText, Required: false, Description: "Pretensiones de la demanda"},
		},
	},
}

// extraction holds field schemas for document types that have no preference
// use case. The definitions above are what users configure; these are what
// the engines fill in.
var extraction = map[constants.DocumentType][]Field{
	constants.Receipt: {
		{Name: "receiptNumber", Type: TypeText, Required: true, Description: "Número del recibo"},
		{Name: "date", Type: TypeDate, Required: true, Description: "Fecha del recibo"},
		{Name: "amount", Type: TypeCurrency, Required: true, Description: "Monto pagado"},
		{Name: "currency", Type: TypeText, Description: "Moneda del pago"},
		{Name: "payer", Type: TypeText, Description: "Quien realiza el pago"},
		{Name: "receiver", Type: TypeText, Description: "Quien recibe el pago"},
	},
	constants.Contract: {
		{Name: "contractNumber", Type: TypeText, Required: true, Description: "Número del contrato"},
		{Name: "parties", Type: TypeArray, Required: true, Description: "Partes del contrato"},
		{Name: "effectiveDate", Type: TypeDate, Description: "Fecha de entrada en vigencia"},
		{Name: "terminationDate", Type: TypeDate, Description: "Fecha de terminación"},
		{Name: "terms", Type: TypeText, Description: "Términos principales"},
		{Name: "value", Type: TypeCurrency, Description: "Valor del contrato"},
	},
	constants.Legal: {
		{Name: "caseNumber", Type: TypeText, Required: true, Description: "Número del caso o proceso"},
		{Name: "court", Type: TypeText, Required: true, Description: "Juzgado o tribunal"},
		{Name: "parties", Type: TypeArray, Description: "Partes del proceso"},
		{Name: "filingDate", Type: TypeDate, Description: "Fecha de radicación"},
		{Name: "type", Type: TypeText, Description: "Tipo de acción legal"},
	},
	constants.Other: {
		{Name: "keyPoints", Type: TypeArray, Description: "Puntos clave del documento"},
		{Name: "dates", Type: TypeArray, Description: "Fechas encontradas"},
		{Name: "amounts", Type: TypeNumbers, Description: "Montos encontrados"},
		{Name: "parties", Type: TypeArray, Description: "Partes mencionadas"},
		{Name: "summary", Type: TypeText, Description: "Resumen del documento"},
	},
}

// GetSchema returns the predefined definition for a use-case identifier.
// Unrecognized identifiers fall back to the contract-certification schema;
// this is the documented default policy, not an error path.
func GetSchema(useCaseID string) Definition {
	key := constants.UseCase(strings.ToUpper(strings.TrimSpace(useCaseID)))
	if def, ok := predefined[key]; ok {
		return def
	}
	return predefined[constants.UseCase(constants.DefaultDocumentType)]
}

// FieldsFor maps a classified document type onto the schema whose fields an
// extractor should populate. Every member of the closed type set has its own
// schema; anything outside it gets the default.
func FieldsFor(dt constants.DocumentType) []Field {
	switch dt {
	case constants.Invoice:
		return predefined[constants.UseCaseInvoiceProcessing].Fields
	case constants.Receipt, constants.Contract, constants.Legal, constants.Other:
		return extraction[dt]
	default:
		return predefined[constants.UseCaseContractCertification].Fields
	}
}

// RequiredFields filters a field list down to the required entries.
func RequiredFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}
