package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// Send despacha la factura al cliente. Precondiciones: status draft, admin_status
// approved y un correo del cliente. El estado pasa a sent antes del despacho; si el
// despacho falla se compensa de vuelta a draft y se devuelve ExternalService.
func (uc *InvoiceUseCase) Send(ctx context.Context, p entity.Principal, invoiceID string) (*dto.InvoiceResponse, error) {
	const op = "invoices.send"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}

	var (
		inv    *entity.Invoice
		items  []*entity.InvoiceItem
		client *entity.Client
		doc    *entity.FiscalDocument
	)
	err := uc.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		if err := inv.CanSend(); err != nil {
			return domain.Conflict(op, "%s", err.Error())
		}
		client, err = r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return fmt.Errorf("obtener cliente: %w", err)
		}
		if client == nil {
			return domain.NotFound(op, "cliente", inv.ClientID)
		}
		if client.Email == "" {
			return domain.Validation(op, "el cliente %s no tiene correo registrado", client.ID)
		}
		if items, err = r.Invoices.GetItems(ctx, inv.ID); err != nil {
			return fmt.Errorf("obtener líneas: %w", err)
		}
		if doc, err = r.Documents.GetByInvoiceID(ctx, inv.ID); err != nil {
			return fmt.Errorf("obtener comprobante: %w", err)
		}
		inv.Status = entity.StatusSent
		inv.UpdatedAt = uc.now()
		return r.Invoices.UpdateStatus(ctx, inv.ID, entity.StatusSent, inv.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	if dispatchErr := uc.dispatch(ctx, inv, items, client, doc); dispatchErr != nil {
		uc.log.Warn().Err(dispatchErr).Str("invoice_id", inv.ID).Msg("despacho fallido, revirtiendo a draft")
		if cErr := uc.compensateSend(ctx, inv.ID); cErr != nil {
			uc.log.Error().Err(cErr).Str("invoice_id", inv.ID).Msg("no se pudo revertir el envío")
			dispatchErr = errors.Join(dispatchErr, cErr)
		}
		uc.audit.Record(ctx, entity.AuditEvent{
			UserID: p.UserID, Action: entity.AuditInvoiceSendFailed, InvoiceID: inv.ID, Message: dispatchErr.Error(),
		})
		return nil, domain.ExternalService(op, "despacho de correo", dispatchErr)
	}

	uc.log.Info().Str("invoice_id", inv.ID).Str("email", client.Email).Msg("factura enviada")
	uc.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditInvoiceSent, InvoiceID: inv.ID, Success: true, Message: client.Email,
	})
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

func (uc *InvoiceUseCase) dispatch(ctx context.Context, inv *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, doc *entity.FiscalDocument) error {
	if uc.dispatcher == nil {
		return errors.New("no hay despachador configurado")
	}
	msg := InvoiceEmail{Invoice: inv, Items: items, ClientEmail: client.Email, ClientName: client.Name}
	if uc.pdf != nil {
		pdf, err := uc.pdf.Generate(inv, items, client, doc)
		if err != nil {
			return fmt.Errorf("generar PDF: %w", err)
		}
		msg.PDF = pdf
	}
	return uc.dispatcher.SendInvoiceEmail(ctx, msg)
}

// compensateSend revierte el envío si la factura sigue en sent. Sin pagos vuelve a
// draft; con pagos registrados durante el despacho queda en el estado que deriva
// del acumulado.
func (uc *InvoiceUseCase) compensateSend(ctx context.Context, invoiceID string) error {
	return uc.tx.RunInTx(ctx, func(r Repos) error {
		inv, err := r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil || inv.Status != entity.StatusSent {
			return nil
		}
		paid, err := r.Payments.SumByInvoice(ctx, invoiceID, "")
		if err != nil {
			return fmt.Errorf("sumar pagos: %w", err)
		}
		next := entity.StatusFromPayments(paid, inv.TotalAmount)
		if next == inv.Status {
			return nil
		}
		return r.Invoices.UpdateStatus(ctx, invoiceID, next, uc.now())
	})
}

// UpdateAdminStatus registra la revisión administrativa. Entrar en rejected libera el
// inventario de las líneas con producto; volver de rejected a approved lo reserva de
// nuevo y, si alguna línea no alcanza, la transición completa se deshace. Desde
// rejected no se pasa a pending ni expired.
func (uc *InvoiceUseCase) UpdateAdminStatus(ctx context.Context, p entity.Principal, invoiceID string, in dto.UpdateAdminStatusRequest) (*dto.InvoiceResponse, error) {
	const op = "invoices.admin_status"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	if !p.IsAdmin() {
		return nil, domain.Forbidden(op, "solo un administrador puede revisar facturas")
	}
	to := entity.AdminStatus(in.Status)
	if !to.Valid() {
		return nil, domain.Validation(op, "admin_status inválido: %s", in.Status)
	}

	var inv *entity.Invoice
	var from entity.AdminStatus
	err := uc.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		from = inv.AdminStatus
		if err := entity.CheckAdminTransition(from, to); err != nil {
			return domain.Conflict(op, "%s", err.Error())
		}

		if effect := entity.AdminTransitionEffect(from, to); effect != entity.StockNone {
			items, err := r.Invoices.GetItems(ctx, inv.ID)
			if err != nil {
				return fmt.Errorf("obtener líneas: %w", err)
			}
			switch effect {
			case entity.StockRelease:
				err = uc.stock.ReleaseItems(ctx, r.Stock, items)
			case entity.StockReserve:
				err = uc.stock.ReserveItems(ctx, r.Stock, items)
			}
			if err != nil {
				return err
			}
		}

		now := uc.now()
		inv.AdminStatus = to
		inv.AdminNotes = in.Notes
		inv.AdminReviewedBy = p.UserID
		inv.AdminReviewedAt = &now
		inv.UpdatedAt = now
		return r.Invoices.UpdateAdminReview(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("invoice_id", inv.ID).Str("from", string(from)).Str("to", string(to)).
		Str("reviewer", p.UserID).Msg("estado administrativo actualizado")
	uc.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditAdminStatus, InvoiceID: inv.ID, Success: true,
		Message: string(from) + " -> " + string(to),
	})
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// OverrideStatus cambio directo del estado comercial, reservado a administradores.
// Reglas:
//   - cancelled es terminal y solo se alcanza desde draft o sent;
//   - draft exige acumulado pagado 0 y ningún comprobante autorizado;
//   - sent exige admin_status approved y acumulado menor al total;
//   - paid exige acumulado mayor o igual al total.
func (uc *InvoiceUseCase) OverrideStatus(ctx context.Context, p entity.Principal, invoiceID string, in dto.UpdateStatusRequest) (*dto.InvoiceResponse, error) {
	const op = "invoices.status"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	if !p.IsAdmin() {
		return nil, domain.Forbidden(op, "solo un administrador puede forzar el estado")
	}
	to := entity.InvoiceStatus(in.Status)
	if !to.Valid() {
		return nil, domain.Validation(op, "status inválido: %s", in.Status)
	}

	var inv *entity.Invoice
	var from entity.InvoiceStatus
	err := uc.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		from = inv.Status
		if from == to {
			return nil
		}
		if from == entity.StatusCancelled {
			return domain.Conflict(op, "la factura está anulada")
		}
		paid, err := r.Payments.SumByInvoice(ctx, inv.ID, "")
		if err != nil {
			return fmt.Errorf("sumar pagos: %w", err)
		}
		switch to {
		case entity.StatusCancelled:
			if from == entity.StatusPaid {
				return domain.Conflict(op, "una factura pagada no puede anularse")
			}
		case entity.StatusDraft:
			if !paid.IsZero() {
				return domain.Conflict(op, "la factura tiene pagos registrados")
			}
			doc, err := r.Documents.GetByInvoiceID(ctx, inv.ID)
			if err != nil {
				return fmt.Errorf("obtener comprobante: %w", err)
			}
			if doc != nil && doc.IsAuthorized() {
				return domain.Conflict(op, "la factura tiene un comprobante autorizado")
			}
		case entity.StatusSent:
			if inv.AdminStatus != entity.AdminApproved {
				return domain.Conflict(op, "la factura no está aprobada")
			}
			if paid.GreaterThanOrEqual(inv.TotalAmount) && paid.IsPositive() {
				return domain.Conflict(op, "la factura está totalmente pagada")
			}
		case entity.StatusPaid:
			if paid.LessThan(inv.TotalAmount) {
				return domain.Conflict(op, "el acumulado pagado %s no cubre el total %s",
					paid.StringFixed(2), inv.TotalAmount.StringFixed(2))
			}
		}
		inv.Status = to
		inv.UpdatedAt = uc.now()
		return r.Invoices.UpdateStatus(ctx, inv.ID, to, inv.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditInvoiceStatus, InvoiceID: inv.ID, Success: true,
		Message: string(from) + " -> " + string(to),
	})
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// Delete elimina una factura en draft con sus líneas y libera su inventario
// (salvo que esté rechazada, en cuyo caso ya se liberó al rechazarla).
func (uc *InvoiceUseCase) Delete(ctx context.Context, p entity.Principal, invoiceID string) error {
	const op = "invoices.delete"
	if p.Anonymous() {
		return domain.Unauthorized(op)
	}
	err := uc.tx.RunInTx(ctx, func(r Repos) error {
		inv, err := r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		if inv.Status != entity.StatusDraft {
			return domain.Conflict(op, "solo se eliminan facturas en draft, estado actual %s", inv.Status)
		}
		if inv.AdminStatus != entity.AdminRejected {
			items, err := r.Invoices.GetItems(ctx, inv.ID)
			if err != nil {
				return fmt.Errorf("obtener líneas: %w", err)
			}
			if err := uc.stock.ReleaseItems(ctx, r.Stock, items); err != nil {
				return err
			}
		}
		return r.Invoices.Delete(ctx, inv.ID)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("invoice_id", invoiceID).Msg("factura eliminada")
	uc.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditInvoiceDeleted, InvoiceID: invoiceID, Success: true,
	})
	return nil
}
