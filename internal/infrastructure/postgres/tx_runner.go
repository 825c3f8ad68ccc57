package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain"
)

var _ billing.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL serializable.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewRepos repositorios de facturación sobre un Querier (pool para lecturas o tx).
func NewRepos(q Querier) billing.Repos {
	return billing.Repos{
		Invoices:  NewInvoiceRepository(q),
		Payments:  NewPaymentRepository(q),
		Stock:     NewStockRepository(q),
		Clients:   NewClientRepository(q),
		Documents: NewFiscalDocumentRepository(q),
	}
}

// RunInTx inicia la transacción, ejecuta fn con repos atados a ella y hace Commit o Rollback.
// Un fallo de serialización se reporta como Conflict: el llamador puede reintentar.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(repos billing.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		if isSerializationFailure(err) {
			return domain.Conflict("tx", "operación concurrente sobre la misma factura, reintente")
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return domain.Conflict("tx", "operación concurrente sobre la misma factura, reintente")
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
