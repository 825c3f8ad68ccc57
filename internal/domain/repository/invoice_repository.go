package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// InvoiceFilter criterios estructurados para listar facturas. Campos vacíos no filtran.
type InvoiceFilter struct {
	Status      entity.InvoiceStatus
	AdminStatus entity.AdminStatus
	ClientID    string
	Limit       int
	Offset      int
}

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
// Los Get devuelven (nil, nil) cuando el registro no existe.
type InvoiceRepository interface {
	// Create persiste la cabecera y asigna ID y Sequential.
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, int, error)
	// LastSuffixOn mayor consecutivo usado el día indicado (0 si no hay). Los borrados
	// dejan huecos; el siguiente número es LastSuffixOn+1.
	LastSuffixOn(ctx context.Context, day time.Time) (int, error)
	UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error
	// UpdateAdminReview guarda admin_status, admin_notes, admin_reviewed_by y admin_reviewed_at.
	UpdateAdminReview(ctx context.Context, invoice *entity.Invoice) error
	// Delete elimina la factura con sus líneas.
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, recent int) (*entity.InvoiceStats, error)
}
