package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// PaymentLedger registra pagos contra facturas y deriva el estado comercial del acumulado.
// Invariante: la suma de pagos de una factura nunca supera total_amount.
type PaymentLedger struct {
	tx       TxRunner
	reads    Repos
	audit    Auditor
	log      *logger.Logger
	location *time.Location
	now      Clock
}

// NewPaymentLedger construye el ledger. audit puede ser nil.
func NewPaymentLedger(tx TxRunner, reads Repos, audit Auditor, log *logger.Logger, loc *time.Location) *PaymentLedger {
	if audit == nil {
		audit = NopAuditor()
	}
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentLedger{tx: tx, reads: reads, audit: audit, log: log.Component("payments"), location: loc, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *PaymentLedger) WithClock(c Clock) *PaymentLedger {
	l.now = c
	return l
}

func (l *PaymentLedger) parsePayment(op string, in dto.PaymentRequest) (*entity.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, domain.Validation(op, "el monto debe ser mayor que cero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, domain.Validation(op, "el monto admite como máximo 2 decimales")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return nil, domain.Validation(op, "payment_method es obligatorio")
	}
	if strings.TrimSpace(in.PaymentDate) == "" {
		return nil, domain.Validation(op, "payment_date es obligatoria")
	}
	date, err := time.ParseInLocation(dto.DateLayout, strings.TrimSpace(in.PaymentDate), l.location)
	if err != nil {
		return nil, domain.Validation(op, "payment_date inválida: %s", in.PaymentDate)
	}
	return &entity.Payment{
		Amount:          in.Amount,
		PaymentDate:     date,
		PaymentMethod:   method,
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		Notes:           strings.TrimSpace(in.Notes),
	}, nil
}

// Record registra un pago nuevo. Rechaza facturas anuladas o rechazadas y pagos que
// harían superar el total. Estado resultante: paid si el acumulado cubre el total,
// sent si la factura estaba en draft, sin cambio en otro caso.
func (l *PaymentLedger) Record(ctx context.Context, p entity.Principal, invoiceID string, in dto.PaymentRequest) (*dto.PaymentResult, error) {
	const op = "payments.record"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	pay, err := l.parsePayment(op, in)
	if err != nil {
		return nil, err
	}

	var inv *entity.Invoice
	err = l.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		if inv.Status == entity.StatusCancelled {
			return domain.Conflict(op, "no se registran pagos en facturas anuladas")
		}
		if inv.AdminStatus == entity.AdminRejected {
			return domain.Conflict(op, "no se registran pagos en facturas rechazadas")
		}
		paid, err := r.Payments.SumByInvoice(ctx, inv.ID, "")
		if err != nil {
			return fmt.Errorf("sumar pagos: %w", err)
		}
		newCumulative := paid.Add(pay.Amount)
		if newCumulative.GreaterThan(inv.TotalAmount) {
			return domain.Overpayment(op, "el pago de %s excede el saldo pendiente %s",
				pay.Amount.StringFixed(2), inv.TotalAmount.Sub(paid).StringFixed(2))
		}

		now := l.now()
		pay.InvoiceID = inv.ID
		pay.CreatedAt, pay.UpdatedAt = now, now
		if err := r.Payments.Create(ctx, pay); err != nil {
			return err
		}
		next := entity.StatusAfterNewPayment(inv.Status, newCumulative, inv.TotalAmount)
		if next == inv.Status {
			return nil
		}
		inv.Status, inv.UpdatedAt = next, now
		return r.Invoices.UpdateStatus(ctx, inv.ID, next, now)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().Str("invoice_id", inv.ID).Str("payment_id", pay.ID).
		Str("amount", pay.Amount.StringFixed(2)).Str("status", string(inv.Status)).Msg("pago registrado")
	l.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditPaymentRecorded, InvoiceID: inv.ID, Success: true,
		Message: pay.Amount.StringFixed(2),
	})
	return &dto.PaymentResult{Payment: toPaymentResponse(pay), InvoiceStatus: string(inv.Status)}, nil
}

// Update modifica un pago. El acumulado se recalcula excluyendo el pago original, se
// valida contra el total con el monto nuevo y el estado se deriva del acumulado.
func (l *PaymentLedger) Update(ctx context.Context, p entity.Principal, paymentID string, in dto.PaymentRequest) (*dto.PaymentResult, error) {
	const op = "payments.update"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	changes, err := l.parsePayment(op, in)
	if err != nil {
		return nil, err
	}

	var pay *entity.Payment
	var inv *entity.Invoice
	err = l.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		pay, err = r.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("obtener pago: %w", err)
		}
		if pay == nil {
			return domain.NotFound(op, "pago", paymentID)
		}
		inv, err = l.lockInvoice(ctx, r, op, pay.InvoiceID)
		if err != nil {
			return err
		}
		others, err := r.Payments.SumByInvoice(ctx, inv.ID, pay.ID)
		if err != nil {
			return fmt.Errorf("sumar pagos: %w", err)
		}
		cumulative := others.Add(changes.Amount)
		if cumulative.GreaterThan(inv.TotalAmount) {
			return domain.Overpayment(op, "el monto %s excede el saldo pendiente %s",
				changes.Amount.StringFixed(2), inv.TotalAmount.Sub(others).StringFixed(2))
		}

		now := l.now()
		pay.Amount = changes.Amount
		pay.PaymentDate = changes.PaymentDate
		pay.PaymentMethod = changes.PaymentMethod
		pay.ReferenceNumber = changes.ReferenceNumber
		pay.Notes = changes.Notes
		pay.UpdatedAt = now
		if err := r.Payments.Update(ctx, pay); err != nil {
			return err
		}
		return l.applyDerivedStatus(ctx, r, inv, cumulative, now)
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditPaymentUpdated, InvoiceID: inv.ID, Success: true,
		Message: pay.ID,
	})
	return &dto.PaymentResult{Payment: toPaymentResponse(pay), InvoiceStatus: string(inv.Status)}, nil
}

// Delete elimina un pago y recalcula el estado comercial de la factura.
func (l *PaymentLedger) Delete(ctx context.Context, p entity.Principal, paymentID string) (*dto.PaymentResult, error) {
	const op = "payments.delete"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}

	var pay *entity.Payment
	var inv *entity.Invoice
	err := l.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		pay, err = r.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("obtener pago: %w", err)
		}
		if pay == nil {
			return domain.NotFound(op, "pago", paymentID)
		}
		inv, err = l.lockInvoice(ctx, r, op, pay.InvoiceID)
		if err != nil {
			return err
		}
		cumulative, err := r.Payments.SumByInvoice(ctx, inv.ID, pay.ID)
		if err != nil {
			return fmt.Errorf("sumar pagos: %w", err)
		}
		if err := r.Payments.Delete(ctx, pay.ID); err != nil {
			return err
		}
		return l.applyDerivedStatus(ctx, r, inv, cumulative, l.now())
	})
	if err != nil {
		return nil, err
	}

	l.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditPaymentDeleted, InvoiceID: inv.ID, Success: true,
		Message: pay.ID,
	})
	return &dto.PaymentResult{Payment: toPaymentResponse(pay), InvoiceStatus: string(inv.Status)}, nil
}

// lockInvoice bloquea la factura del pago; las anuladas y las rechazadas no admiten
// cambios de pagos.
func (l *PaymentLedger) lockInvoice(ctx context.Context, r Repos, op, invoiceID string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.NotFound(op, "factura", invoiceID)
	}
	if inv.Status == entity.StatusCancelled {
		return nil, domain.Conflict(op, "la factura está anulada")
	}
	if inv.AdminStatus == entity.AdminRejected {
		return nil, domain.Conflict(op, "la factura está rechazada")
	}
	return inv, nil
}

// applyDerivedStatus fija el estado derivado del acumulado: draft si es 0, sent si es
// parcial, paid si cubre el total.
func (l *PaymentLedger) applyDerivedStatus(ctx context.Context, r Repos, inv *entity.Invoice, cumulative decimal.Decimal, now time.Time) error {
	next := entity.StatusFromPayments(cumulative, inv.TotalAmount)
	if next == inv.Status {
		return nil
	}
	inv.Status, inv.UpdatedAt = next, now
	return r.Invoices.UpdateStatus(ctx, inv.ID, next, now)
}

// Get devuelve un pago.
func (l *PaymentLedger) Get(ctx context.Context, p entity.Principal, paymentID string) (*dto.PaymentResponse, error) {
	const op = "payments.get"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	pay, err := l.reads.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if pay == nil {
		return nil, domain.NotFound(op, "pago", paymentID)
	}
	resp := toPaymentResponse(pay)
	return &resp, nil
}

// ListByInvoice pagos de una factura con el resumen de cobro.
func (l *PaymentLedger) ListByInvoice(ctx context.Context, p entity.Principal, invoiceID string) (*dto.PaymentListResponse, error) {
	const op = "payments.list"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	inv, err := l.reads.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if inv == nil {
		return nil, domain.NotFound(op, "factura", invoiceID)
	}
	payments, err := l.reads.Payments.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &dto.PaymentListResponse{
		Payments: toPaymentResponses(payments),
		Summary:  toSummaryDTO(entity.SummarizePayments(inv.TotalAmount, payments)),
	}, nil
}
