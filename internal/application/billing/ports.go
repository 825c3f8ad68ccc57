package billing

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Invoices  repository.InvoiceRepository
	Payments  repository.PaymentRepository
	Stock     repository.StockRepository
	Clients   repository.ClientRepository
	Documents repository.FiscalDocumentRepository
}

// TxRunner ejecuta fn dentro de una transacción serializable. Si fn devuelve error
// se hace rollback de todo, incluidos los ajustes de stock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(r Repos) error) error
}

// InvoiceEmail datos del despacho de una factura al cliente.
type InvoiceEmail struct {
	Invoice     *entity.Invoice
	Items       []*entity.InvoiceItem
	ClientEmail string
	ClientName  string
	PDF         []byte // representación gráfica adjunta; puede ir vacía
}

// Dispatcher envía la factura al cliente (correo, cola, etc.).
type Dispatcher interface {
	SendInvoiceEmail(ctx context.Context, msg InvoiceEmail) error
}

// InvoicePDFGenerator genera la representación impresa (RIDE) de la factura.
// doc es nil si la factura aún no tiene comprobante electrónico.
type InvoicePDFGenerator interface {
	Generate(inv *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, doc *entity.FiscalDocument) ([]byte, error)
}

// DocumentBuilder construye el XML del comprobante. Debe ser determinista.
type DocumentBuilder interface {
	Build(in sri.DocumentInput) ([]byte, error)
}

// FiscalAuthorizationClient canal de autorización del SRI. No reintenta: el reenvío es
// una operación explícita del usuario (Resend).
type FiscalAuthorizationClient interface {
	Submit(ctx context.Context, document []byte, accessKey string) (*sri.AuthorizationResult, error)
}

// Auditor registra eventos del ciclo de vida. Es best-effort: nunca falla la operación.
type Auditor interface {
	Record(ctx context.Context, event entity.AuditEvent)
}

// Clock fuente de la hora actual (inyectable en tests).
type Clock func() time.Time

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, entity.AuditEvent) {}

// NopAuditor descarta los eventos.
func NopAuditor() Auditor { return nopAuditor{} }
