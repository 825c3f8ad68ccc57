package notification

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

var _ billing.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher solo registra el despacho. Para desarrollo (MAIL_DRIVER=log).
type LogDispatcher struct {
	issuer string
	log    *logger.Logger
}

// NewLogDispatcher construye el despachador.
func NewLogDispatcher(issuer string, log *logger.Logger) *LogDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogDispatcher{issuer: issuer, log: log.Component("log_dispatcher")}
}

func (d *LogDispatcher) SendInvoiceEmail(ctx context.Context, msg billing.InvoiceEmail) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Info().
		Str("invoice_id", msg.Invoice.ID).
		Str("to", msg.ClientEmail).
		Str("subject", subject(msg, d.issuer)).
		Int("pdf_bytes", len(msg.PDF)).
		Msg("despacho simulado")
	return nil
}
