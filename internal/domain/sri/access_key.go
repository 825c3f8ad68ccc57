// Package sri: clave de acceso de comprobantes electrónicos del SRI (Ecuador).
// La clave es la concatenación de campos numéricos de longitud fija más un dígito
// verificador módulo 11 con pesos cíclicos 7,6,5,4,3,2.
package sri

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout define qué campos componen la clave.
type Layout string

const (
	// LayoutOfficial ficha técnica SRI: 48 dígitos + verificador = 49.
	//   fecha(8) tipoComprobante(2) ruc(13) ambiente(1) establecimiento(3) puntoEmision(3)
	//   secuencial(9) codigoNumerico(8) tipoEmision(1)
	LayoutOfficial Layout = "official"
	// LayoutExtended variante heredada: repite el tipo de documento y agrega la identificación
	// del receptor en lugar de codigoNumerico/tipoEmision (54 dígitos + verificador).
	LayoutExtended Layout = "extended"
)

// ConsumerFinalID identificación genérica de consumidor final.
const ConsumerFinalID = "9999999999999"

// Longitudes de la clave completa según el layout.
const (
	OfficialKeyLength = 49
	ExtendedKeyLength = 55
)

// AccessKeyParams campos de la clave de acceso.
type AccessKeyParams struct {
	IssueDate        time.Time
	DocumentType     string // codDoc, "01" = factura
	IssuerRUC        string // 13 dígitos
	Environment      string // "1" pruebas, "2" producción
	Establishment    string // 3 dígitos
	EmissionPoint    string // 3 dígitos
	Sequential       int64  // 1..999999999
	NumericCode      string // 8 dígitos (official)
	EmissionType     string // "1" normal (official)
	DocumentTypeCode string // repetición del tipo (extended)
	RecipientID      string // identificación del receptor (extended); vacío = consumidor final
}

type keyField struct {
	name  string
	value string
	size  int
}

// AccessKeyGenerator construye claves con un layout fijo.
type AccessKeyGenerator struct {
	layout Layout
}

// NewAccessKeyGenerator crea el generador. Un layout vacío usa LayoutOfficial.
func NewAccessKeyGenerator(layout Layout) *AccessKeyGenerator {
	if layout == "" {
		layout = LayoutOfficial
	}
	return &AccessKeyGenerator{layout: layout}
}

// Layout devuelve el layout configurado.
func (g *AccessKeyGenerator) Layout() Layout { return g.layout }

// Generate arma la clave de acceso y le agrega el dígito verificador.
func (g *AccessKeyGenerator) Generate(p AccessKeyParams) (string, error) {
	if p.IssueDate.IsZero() {
		return "", fmt.Errorf("sri: fecha de emisión obligatoria")
	}
	if p.Sequential <= 0 || p.Sequential > 999_999_999 {
		return "", fmt.Errorf("sri: secuencial fuera de rango: %d", p.Sequential)
	}

	var b strings.Builder
	b.WriteString(p.IssueDate.Format("02012006"))
	fields := []keyField{
		{"tipo de comprobante", p.DocumentType, 2},
		{"RUC", p.IssuerRUC, 13},
		{"ambiente", p.Environment, 1},
		{"establecimiento", p.Establishment, 3},
		{"punto de emisión", p.EmissionPoint, 3},
		{"secuencial", FormatSequential(p.Sequential), 9},
	}
	switch g.layout {
	case LayoutOfficial:
		fields = append(fields,
			keyField{"código numérico", p.NumericCode, 8},
			keyField{"tipo de emisión", p.EmissionType, 1},
		)
	case LayoutExtended:
		recipient := onlyDigits(p.RecipientID)
		if recipient == "" {
			recipient = ConsumerFinalID
		}
		if len(recipient) < 13 {
			recipient = strings.Repeat("0", 13-len(recipient)) + recipient
		}
		fields = append(fields,
			keyField{"código de tipo de documento", p.DocumentTypeCode, 2},
			keyField{"identificación del receptor", recipient, 13},
		)
	default:
		return "", fmt.Errorf("sri: layout desconocido %q", g.layout)
	}

	for _, f := range fields {
		if len(f.value) != f.size || onlyDigits(f.value) != f.value {
			return "", fmt.Errorf("sri: %s debe tener %d dígitos, recibido %q", f.name, f.size, f.value)
		}
		b.WriteString(f.value)
	}

	base := b.String()
	check, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(check), nil
}

// weights pesos del módulo 11, repetidos cíclicamente desde el primer dígito.
var weights = [...]int{7, 6, 5, 4, 3, 2}

// CheckDigit calcula el dígito verificador módulo 11:
// residuo 0 → 0; si 11 - residuo == 10 → 1; en otro caso 11 - residuo.
func CheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("sri: cadena vacía")
	}
	sum := 0
	for i, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("sri: carácter no numérico %q en posición %d", r, i)
		}
		sum += int(r-'0') * weights[i%len(weights)]
	}
	remainder := sum % 11
	if remainder == 0 {
		return 0, nil
	}
	check := 11 - remainder
	if check == 10 {
		return 1, nil
	}
	return check, nil
}

// ValidateAccessKey comprueba que la clave sea numérica, tenga una longitud conocida
// y que su último dígito coincida con el verificador.
func ValidateAccessKey(key string) error {
	if len(key) != OfficialKeyLength && len(key) != ExtendedKeyLength {
		return fmt.Errorf("sri: longitud de clave inválida: %d", len(key))
	}
	want, err := CheckDigit(key[:len(key)-1])
	if err != nil {
		return err
	}
	if got := int(key[len(key)-1] - '0'); got != want {
		return fmt.Errorf("sri: dígito verificador %d, esperado %d", got, want)
	}
	return nil
}

// FormatSequential secuencial de 9 dígitos con ceros a la izquierda.
func FormatSequential(n int64) string {
	return fmt.Sprintf("%09d", n)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
