package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo inventario de productos sobre PostgreSQL (usable con pool o tx).
// Los ajustes son un único UPDATE atómico; nunca se lee el stock para luego escribirlo.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// GetProduct obtiene un producto por ID.
func (r *StockRepo) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	query := `
		SELECT id, code, name, COALESCE(description, ''), price, stock_quantity, is_active, created_at, updated_at
		FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Decrement resta qty solo si hay existencias suficientes.
func (r *StockRepo) Decrement(ctx context.Context, productID string, qty decimal.Decimal) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = now()
		WHERE id = $2 AND stock_quantity >= $1`,
		qty, productID,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Increment suma qty sin condición.
func (r *StockRepo) Increment(ctx context.Context, productID string, qty decimal.Decimal) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = now()
		WHERE id = $2`,
		qty, productID,
	)
	if err != nil {
		return false, fmt.Errorf("increment stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
