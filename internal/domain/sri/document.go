package sri

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// Issuer datos del emisor que viajan en infoTributaria y en la clave de acceso.
type Issuer struct {
	RUC             string
	RazonSocial     string
	NombreComercial string
	DirMatriz       string
	Establishment   string
	EmissionPoint   string
	Environment     string // "1" pruebas, "2" producción
}

// DocumentInput todo lo necesario para construir el XML de una factura.
// El builder no consulta repositorios ni el reloj: misma entrada, mismos bytes.
type DocumentInput struct {
	Issuer    Issuer
	AccessKey string
	Invoice   *entity.Invoice
	Items     []*entity.InvoiceItem
	Client    *entity.Client
	TaxRate   decimal.Decimal
}

// AuthorityMessage mensaje informativo o de error devuelto por el SRI.
type AuthorityMessage struct {
	Identifier     string `json:"identificador"`
	Message        string `json:"mensaje"`
	AdditionalInfo string `json:"informacionAdicional,omitempty"`
	Type           string `json:"tipo"`
}

// AuthorizationResult respuesta del canal de autorización para un comprobante.
type AuthorizationResult struct {
	Status              string             `json:"estado"`
	AuthorizationNumber string             `json:"numeroAutorizacion,omitempty"`
	AuthorizationDate   *time.Time         `json:"fechaAutorizacion,omitempty"`
	Environment         string             `json:"ambiente,omitempty"`
	Messages            []AuthorityMessage `json:"mensajes,omitempty"`
}

// Authorized indica si el SRI autorizó el comprobante.
func (r *AuthorizationResult) Authorized() bool {
	return r != nil && r.Status == entity.FiscalStatusAuthorized
}

// Payload serializa el resultado para guardarlo como respuesta opaca del SRI.
func (r *AuthorizationResult) Payload() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
