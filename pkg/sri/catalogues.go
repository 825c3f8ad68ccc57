// Package sri contiene catálogos de la ficha técnica de comprobantes electrónicos
// del SRI (Ecuador), esquema offline.
package sri

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tipos de comprobante (codDoc).
const (
	DocTypeFactura     = "01"
	DocTypeNotaCredito = "04"
	DocTypeNotaDebito  = "05"
	DocTypeGuia        = "06"
	DocTypeRetencion   = "07"
)

// Tipo de emisión.
const EmissionTypeNormal = "1"

// Moneda del comprobante.
const CurrencyDollar = "DOLAR"

// Tipos de identificación del comprador.
const (
	IDTypeRUC           = "04"
	IDTypeCedula        = "05"
	IDTypePasaporte     = "06"
	IDTypeConsumerFinal = "07"
)

// ConsumerFinalID identificación genérica de consumidor final.
const ConsumerFinalID = "9999999999999"

// Código de impuesto IVA.
const TaxCodeIVA = "2"

// ivaPercentageCodes códigos de porcentaje de IVA (tabla 17 de la ficha técnica).
var ivaPercentageCodes = map[string]string{
	"0":  "0",
	"12": "2",
	"14": "3",
	"15": "4",
	"5":  "5",
	"13": "10",
}

// IVAPercentageCode devuelve el codigoPorcentaje para una tarifa (fracción, ej. 0.12).
// Las tarifas fuera del catálogo usan el código "2" (tarifa general).
func IVAPercentageCode(rate decimal.Decimal) string {
	pct := rate.Mul(decimal.NewFromInt(100)).Round(2)
	if code, ok := ivaPercentageCodes[pct.String()]; ok {
		return code
	}
	return "2"
}

// Formas de pago (tabla 24).
const (
	PaymentSinSistemaFinanciero   = "01"
	PaymentTarjetaDebito          = "16"
	PaymentDineroElectronico      = "17"
	PaymentTarjetaCredito         = "19"
	PaymentOtrosSistemaFinanciero = "20"
)

var paymentMethodCodes = map[string]string{
	"cash":          PaymentSinSistemaFinanciero,
	"efectivo":      PaymentSinSistemaFinanciero,
	"debit_card":    PaymentTarjetaDebito,
	"credit_card":   PaymentTarjetaCredito,
	"card":          PaymentTarjetaCredito,
	"electronic":    PaymentDineroElectronico,
	"transfer":      PaymentOtrosSistemaFinanciero,
	"bank_transfer": PaymentOtrosSistemaFinanciero,
	"check":         PaymentOtrosSistemaFinanciero,
}

// PaymentMethodCode traduce el método de pago interno al código del SRI.
func PaymentMethodCode(method string) string {
	if code, ok := paymentMethodCodes[strings.ToLower(strings.TrimSpace(method))]; ok {
		return code
	}
	return PaymentOtrosSistemaFinanciero
}

// IdentificationType clasifica la identificación del comprador:
// vacía o 9999999999999 → consumidor final; 13 dígitos terminados en 001 → RUC;
// 10 dígitos → cédula; cualquier otro valor → pasaporte.
func IdentificationType(taxID string) string {
	id := strings.TrimSpace(taxID)
	switch {
	case id == "" || id == ConsumerFinalID:
		return IDTypeConsumerFinal
	case len(id) == 13 && isDigits(id) && strings.HasSuffix(id, "001"):
		return IDTypeRUC
	case len(id) == 10 && isDigits(id):
		return IDTypeCedula
	default:
		return IDTypePasaporte
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
