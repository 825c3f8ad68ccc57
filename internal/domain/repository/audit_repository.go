package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// AuditRepository almacena el rastro de auditoría.
type AuditRepository interface {
	Insert(ctx context.Context, event *entity.AuditEvent) error
}
