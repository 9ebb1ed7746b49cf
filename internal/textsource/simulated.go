package textsource

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"regexp"
	"strings"
)

// Simulated is a deterministic OCR stand-in. It synthesizes document text
// from the declared type, the filename, and the first bytes of the file.
// Identical input always yields identical text; there is no clock or
// randomness, so downstream extraction stays idempotent.
type Simulated struct{}

func NewSimulated() *Simulated { return &Simulated{} }

var bacConRe = regexp.MustCompile(`BAC-CON\s+(\d+-\d+[A-Z]+)`)

func (s *Simulated) Text(_ context.Context, fileBytes []byte, mimeType, filename string) (string, error) {
	upper := strings.ToUpper(filename)
	head := ""
	if len(fileBytes) > 200 {
		head = string(fileBytes[:200])
	} else {
		head = string(fileBytes)
	}

	switch {
	case strings.Contains(head, "CERTIFICACION") || strings.Contains(head, "ABSICOL") || strings.Contains(head, "SISTEMAS SOLARES"):
		return certificationText, nil
	case strings.Contains(upper, "BAC-CON"):
		return bacConText(filename), nil
	case strings.Contains(upper, "ACTA") && strings.Contains(upper, "LIQUIDACION"):
		return actaLiquidacionText, nil
	case strings.Contains(upper, "CONTRATO") || strings.Contains(upper, "CT-"):
		return contractText(filename), nil
	}
	return genericText(filename, mimeType), nil
}

func bacConText(filename string) string {
	projectNumber := "16-81DG"
	if m := bacConRe.FindStringSubmatch(filename); m != nil {
		projectNumber = m[1]
	}
	location := "PROJECT"
	parts := strings.Split(strings.TrimSuffix(filename, filepath.Ext(filename)), "-")
	if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
		location = last
	}

	return fmt.Sprintf(`BAC-CON %s
CONTRACT FOR PUBLIC WORKS
LOCATION: %s
OBJECT: Execution of infrastructure works
CONTRACTOR: CONSTRUCTION EXAMPLE S.A.S.
TAX ID: 900.123.456-7
CONTRACTING PARTY: MUNICIPALITY OF %s
CONTRACT VALUE: $800,000,000 COP
VAT (19%%): $152,000,000
TOTAL VALUE: $952,000,000
DURATION: 12 MONTHS
START DATE: 2024-01-15
END DATE: 2024-12-14`, projectNumber, location, strings.ToUpper(location))
}

const actaLiquidacionText = `SETTLEMENT DOCUMENT
ENTITY: JUDICIAL BRANCH - CUCUTA
CONTRACT No: LJ-2024-789
CONTRACTOR: JUDICIAL SERVICES COMPANY LTD
OBJECT: "Supply of materials and equipment for judicial offices"
EXECUTED VALUE: $350,000,000
PENDING BALANCE: $0
SETTLEMENT: COMPLETE
SIGNED BY: PRESIDING JUDGE
DATE: 2024-10-30`

const certificationText = `CERTIFICACIÓN DE EXPERIENCIA LABORAL
EMPRESA: ABSICOL SISTEMAS SOLARES S.A.S.
NIT: 900.654.321-1
CONTRATANTE: MUNICIPIO DE MEDELLÍN
OBJETO: Instalación de sistemas solares fotovoltaicos en edificios públicos
CONTRATO No: CT-2024-789-SOL
VALOR CONTRATO: $380,000,000 COP
IVA (19%): $72,200,000
VALOR TOTAL: $452,200,000
FECHA INICIO: 15 de Marzo de 2024
FECHA FIN: 14 de Septiembre de 2024
DURACIÓN: 6 meses

ACTIVIDADES EJECUTADAS:
- Instalación de 250 paneles solares
- Sistema de inversores y baterías
- Capacitación a personal municipal
- Mantenimiento preventivo

FIRMADO:
Carlos Rodríguez
Gerente General
ABSICOL SISTEMAS SOLARES S.A.S.`

func contractText(filename string) string {
	return fmt.Sprintf(`CONTRACT DOCUMENT
CONTRACT No: CT-%s
PARTIES: Contractor and Client
OBJECT: Professional services contract
VALUE: $500,000,000 COP
DURATION: 12 months
START DATE: 2024-01-01
END DATE: 2024-12-31`, StableID(filename))
}

func genericText(filename, mimeType string) string {
	return fmt.Sprintf(`DOCUMENT: %s
MEDIA TYPE: %s
TYPE: General document
CONTENT: Document processed through fallback system`, filename, mimeType)
}

// StableID derives a short deterministic identifier from a filename. It
// replaces the wall-clock suffixes the reference data used, so repeated runs
// over the same file produce the same synthetic numbers.
func StableID(filename string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filename))
	return fmt.Sprintf("%08d", h.Sum32()%100000000)
}
