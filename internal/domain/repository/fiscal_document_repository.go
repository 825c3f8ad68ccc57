package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// FiscalDocumentFilter filtro y paginación (page desde 1) del listado de comprobantes.
type FiscalDocumentFilter struct {
	Status string
	Page   int
	Limit  int
}

// Offset desplazamiento equivalente a Page/Limit.
func (f FiscalDocumentFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// FiscalDocumentRepository persistencia de comprobantes electrónicos (uno por factura).
type FiscalDocumentRepository interface {
	// Create falla con domain.ErrConflict si ya existe un comprobante para la factura o la clave.
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// Update sobrescribe estado, respuesta y datos de autorización del comprobante existente.
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error)
	List(ctx context.Context, filter FiscalDocumentFilter) ([]*entity.FiscalDocumentListItem, int, error)
}
