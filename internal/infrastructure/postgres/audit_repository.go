package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo rastro de auditoría en audit_logs.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Insert agrega un evento. invoice_id no es FK: el rastro sobrevive a la factura eliminada.
func (r *AuditRepo) Insert(ctx context.Context, e *entity.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, invoice_id, success, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, nullIfEmpty(e.UserID), e.Action, nullIfEmpty(e.InvoiceID), e.Success,
		nullIfEmpty(e.Message), metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
