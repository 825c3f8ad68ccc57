package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Estados devueltos por el SRI para un comprobante.
const (
	FiscalStatusAuthorized    = "AUTORIZADO"
	FiscalStatusNotAuthorized = "NO AUTORIZADO"
	FiscalStatusReceived      = "RECIBIDA"
	FiscalStatusReturned      = "DEVUELTA"
)

// FiscalDocument comprobante electrónico asociado 1:1 a una factura.
type FiscalDocument struct {
	ID                  string
	InvoiceID           string
	AccessKey           string // clave de acceso de 49 dígitos
	XMLContent          string // XML firmado tal como se envió al SRI
	AuthorityResponse   json.RawMessage
	Status              string
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsAuthorized indica si el SRI autorizó el comprobante.
func (d *FiscalDocument) IsAuthorized() bool {
	return d.Status == FiscalStatusAuthorized
}

// FiscalDocumentListItem fila del listado de comprobantes con datos de la factura y el cliente.
type FiscalDocumentListItem struct {
	FiscalDocument
	InvoiceNumber string
	TotalAmount   decimal.Decimal
	InvoiceStatus InvoiceStatus
	ClientName    string
	ClientTaxID   string
}
