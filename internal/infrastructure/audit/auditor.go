// Package audit persiste el rastro de auditoría sin afectar la operación auditada.
package audit

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

const writeTimeout = 3 * time.Second

var _ billing.Auditor = (*Auditor)(nil)

// Auditor escribe en el repositorio y en el log. Un fallo del repositorio se registra
// como warning y se descarta.
type Auditor struct {
	repo repository.AuditRepository
	log  *logger.Logger
	now  func() time.Time
}

// New construye el auditor. repo puede ser nil: solo log.
func New(repo repository.AuditRepository, log *logger.Logger) *Auditor {
	if log == nil {
		log = logger.Nop()
	}
	return &Auditor{repo: repo, log: log.Component("audit"), now: time.Now}
}

// Record implementa billing.Auditor.
func (a *Auditor) Record(ctx context.Context, e entity.AuditEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now().UTC()
	}
	ev := a.log.Info()
	if !e.Success {
		ev = a.log.Warn()
	}
	ev.Str("action", e.Action).Str("invoice_id", e.InvoiceID).Str("user_id", e.UserID).
		Bool("success", e.Success).Str("message", e.Message).Msg("audit")

	if a.repo == nil {
		return
	}
	// Independiente de la cancelación del request.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := a.repo.Insert(wctx, &e); err != nil {
		a.log.Warn().Err(err).Str("action", e.Action).Str("invoice_id", e.InvoiceID).Msg("no se pudo persistir la auditoría")
	}
}
