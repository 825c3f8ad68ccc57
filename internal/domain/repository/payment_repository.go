package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// PaymentRepository define el puerto de persistencia para Payment.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
	// SumByInvoice acumulado pagado de la factura, excluyendo el pago excludeID si no está vacío.
	SumByInvoice(ctx context.Context, invoiceID, excludeID string) (decimal.Decimal, error)
}
