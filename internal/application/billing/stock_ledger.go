package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

// StockLedger ajustes atómicos de inventario para productos referenciados en facturas.
// Siempre recibe el StockRepository de la transacción del llamador.
type StockLedger struct{}

// NewStockLedger construye el ledger.
func NewStockLedger() *StockLedger { return &StockLedger{} }

// Reserve descuenta qty con un decremento condicionado. Si no alcanza el stock
// devuelve InsufficientStock y el stock queda igual.
func (l *StockLedger) Reserve(ctx context.Context, stock repository.StockRepository, productID string, qty decimal.Decimal) error {
	const op = "stock.reserve"
	if !qty.IsPositive() {
		return domain.Validation(op, "la cantidad debe ser mayor que cero")
	}
	ok, err := stock.Decrement(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return nil
	}
	p, err := stock.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return domain.NotFound(op, "producto", productID)
	}
	return domain.InsufficientStock(op, productID)
}

// Release devuelve qty al inventario sin condición.
func (l *StockLedger) Release(ctx context.Context, stock repository.StockRepository, productID string, qty decimal.Decimal) error {
	const op = "stock.release"
	ok, err := stock.Increment(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return domain.NotFound(op, "producto", productID)
	}
	return nil
}

// ReserveItems reserva cada línea con producto. El primer fallo se devuelve tal cual;
// el rollback de la transacción deshace las reservas previas.
func (l *StockLedger) ReserveItems(ctx context.Context, stock repository.StockRepository, items []*entity.InvoiceItem) error {
	for _, it := range items {
		if !it.HasProduct() {
			continue
		}
		if err := l.Reserve(ctx, stock, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseItems libera cada línea con producto.
func (l *StockLedger) ReleaseItems(ctx context.Context, stock repository.StockRepository, items []*entity.InvoiceItem) error {
	for _, it := range items {
		if !it.HasProduct() {
			continue
		}
		if err := l.Release(ctx, stock, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
