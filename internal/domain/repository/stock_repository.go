package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// StockRepository puerto de inventario. Los ajustes son sentencias atómicas únicas;
// nunca se lee y luego se escribe.
type StockRepository interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	// Decrement resta qty solo si stock_quantity >= qty. Devuelve false si ninguna fila cambió.
	Decrement(ctx context.Context, productID string, qty decimal.Decimal) (bool, error)
	// Increment suma qty sin condición. Devuelve false si el producto no existe.
	Increment(ctx context.Context, productID string, qty decimal.Decimal) (bool, error)
}
