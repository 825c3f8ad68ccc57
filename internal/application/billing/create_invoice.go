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
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// InvoiceConfig reglas de facturación del caso de uso.
type InvoiceConfig struct {
	TaxRate  decimal.Decimal // tarifa única usada en totales y en el XML
	DueDays  int
	Location *time.Location // zona horaria del consecutivo diario; nil = UTC
}

// InvoiceUseCase creación, consulta y máquina de estados de facturas.
type InvoiceUseCase struct {
	tx         TxRunner
	reads      Repos
	stock      *StockLedger
	dispatcher Dispatcher
	pdf        InvoicePDFGenerator
	audit      Auditor
	log        *logger.Logger
	cfg        InvoiceConfig
	now        Clock
}

// NewInvoiceUseCase construye el caso de uso. reads son repositorios sobre el pool
// para lecturas fuera de transacción. pdf y audit pueden ser nil.
func NewInvoiceUseCase(
	tx TxRunner,
	reads Repos,
	stock *StockLedger,
	dispatcher Dispatcher,
	pdf InvoicePDFGenerator,
	audit Auditor,
	log *logger.Logger,
	cfg InvoiceConfig,
) *InvoiceUseCase {
	if audit == nil {
		audit = NopAuditor()
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DueDays <= 0 {
		cfg.DueDays = 30
	}
	return &InvoiceUseCase{
		tx:         tx,
		reads:      reads,
		stock:      stock,
		dispatcher: dispatcher,
		pdf:        pdf,
		audit:      audit,
		log:        log.Component("invoices"),
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *InvoiceUseCase) WithClock(c Clock) *InvoiceUseCase {
	uc.now = c
	return uc
}

// Create crea la factura en draft/pending, reserva el inventario de cada línea con
// producto y asigna el número FAC-YYYYMMDD-NNNN, todo en una transacción.
func (uc *InvoiceUseCase) Create(ctx context.Context, p entity.Principal, in dto.CreateInvoiceRequest) (*dto.InvoiceDetailResponse, error) {
	const op = "invoices.create"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, domain.Validation(op, "client_id es obligatorio")
	}
	if len(in.Items) == 0 {
		return nil, domain.Validation(op, "la factura debe tener al menos un ítem")
	}

	now := uc.now().In(uc.cfg.Location)
	issueDate, err := parseDateOr(in.IssueDate, now, uc.cfg.Location)
	if err != nil {
		return nil, domain.Validation(op, "issue_date inválida: %s", in.IssueDate)
	}
	dueDate, err := parseDateOr(in.DueDate, issueDate.AddDate(0, 0, uc.cfg.DueDays), uc.cfg.Location)
	if err != nil {
		return nil, domain.Validation(op, "due_date inválida: %s", in.DueDate)
	}
	if dueDate.Before(issueDate) {
		return nil, domain.Validation(op, "due_date no puede ser anterior a issue_date")
	}

	items := make([]*entity.InvoiceItem, 0, len(in.Items))
	for i, req := range in.Items {
		if !req.Quantity.IsPositive() {
			return nil, domain.Validation(op, "ítem %d: la cantidad debe ser mayor que cero", i+1)
		}
		if req.UnitPrice.IsNegative() {
			return nil, domain.Validation(op, "ítem %d: el precio unitario no puede ser negativo", i+1)
		}
		desc := strings.TrimSpace(req.Description)
		if desc == "" && req.ProductID == "" {
			return nil, domain.Validation(op, "ítem %d: se requiere product_id o description", i+1)
		}
		it := &entity.InvoiceItem{
			ProductID:   strings.TrimSpace(req.ProductID),
			Description: desc,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		}
		it.TotalPrice = it.LineTotal().Round(2)
		items = append(items, it)
	}

	client, err := uc.reads.Clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%s: obtener cliente: %w", op, err)
	}
	if client == nil {
		return nil, domain.NotFound(op, "cliente", in.ClientID)
	}
	if !client.IsActive {
		return nil, domain.Validation(op, "el cliente %s está inactivo", client.ID)
	}

	totals := entity.ComputeTotals(items, uc.cfg.TaxRate)
	inv := &entity.Invoice{
		ClientID:    client.ID,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.Tax,
		TotalAmount: totals.Total,
		Status:      entity.StatusDraft,
		AdminStatus: entity.AdminPending,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedBy:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = uc.tx.RunInTx(ctx, func(r Repos) error {
		// ── 1. Consecutivo diario ─────────────────────────────────────────────
		last, err := r.Invoices.LastSuffixOn(ctx, issueDate)
		if err != nil {
			return fmt.Errorf("consecutivo del día: %w", err)
		}
		inv.InvoiceNumber = entity.FormatInvoiceNumber(issueDate, last+1)

		// ── 2. Cabecera y líneas ──────────────────────────────────────────────
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, it := range items {
			if it.Description == "" {
				prod, err := r.Stock.GetProduct(ctx, it.ProductID)
				if err != nil {
					return fmt.Errorf("obtener producto: %w", err)
				}
				if prod == nil {
					return domain.NotFound(op, "producto", it.ProductID)
				}
				it.Description = prod.Name
			}
			it.InvoiceID = inv.ID
			if err := r.Invoices.CreateItem(ctx, it); err != nil {
				return err
			}
		}

		// ── 3. Reserva de inventario (decremento condicionado por línea) ──────
		return uc.stock.ReserveItems(ctx, r.Stock, items)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("invoice_id", inv.ID).Str("invoice_number", inv.InvoiceNumber).
		Str("total", inv.TotalAmount.StringFixed(2)).Msg("factura creada")
	uc.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditInvoiceCreated, InvoiceID: inv.ID, Success: true,
		Message: inv.InvoiceNumber,
	})

	return &dto.InvoiceDetailResponse{
		InvoiceResponse: toInvoiceResponse(inv),
		Client:          toClientResponse(client),
		Items:           toItemResponses(items),
		Payments:        []dto.PaymentResponse{},
		Summary:         toSummaryDTO(entity.SummarizePayments(inv.TotalAmount, nil)),
	}, nil
}

// Get devuelve la factura con cliente, líneas, pagos y resumen de cobro.
func (uc *InvoiceUseCase) Get(ctx context.Context, p entity.Principal, id string) (*dto.InvoiceDetailResponse, error) {
	const op = "invoices.get"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	inv, err := uc.reads.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if inv == nil {
		return nil, domain.NotFound(op, "factura", id)
	}
	items, err := uc.reads.Invoices.GetItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: líneas: %w", op, err)
	}
	payments, err := uc.reads.Payments.ListByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: pagos: %w", op, err)
	}
	client, err := uc.reads.Clients.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%s: cliente: %w", op, err)
	}
	return &dto.InvoiceDetailResponse{
		InvoiceResponse: toInvoiceResponse(inv),
		Client:          toClientResponse(client),
		Items:           toItemResponses(items),
		Payments:        toPaymentResponses(payments),
		Summary:         toSummaryDTO(entity.SummarizePayments(inv.TotalAmount, payments)),
	}, nil
}

// List lista facturas con filtro estructurado.
func (uc *InvoiceUseCase) List(ctx context.Context, p entity.Principal, in dto.InvoiceListRequest) (*dto.InvoiceListResponse, error) {
	const op = "invoices.list"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	filter := repository.InvoiceFilter{ClientID: in.ClientID}
	if in.Status != "" {
		filter.Status = entity.InvoiceStatus(in.Status)
		if !filter.Status.Valid() {
			return nil, domain.Validation(op, "status inválido: %s", in.Status)
		}
	}
	if in.AdminStatus != "" {
		filter.AdminStatus = entity.AdminStatus(in.AdminStatus)
		if !filter.AdminStatus.Valid() {
			return nil, domain.Validation(op, "admin_status inválido: %s", in.AdminStatus)
		}
	}
	page := in.PageRequest
	page.DefaultPage()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, total, err := uc.reads.Invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, inv := range list {
		out.Items = append(out.Items, toInvoiceResponse(inv))
	}
	return out, nil
}

// parseDateOr interpreta YYYY-MM-DD en loc; vacío devuelve def truncado al día.
func parseDateOr(s string, def time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := def.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation(dto.DateLayout, s, loc)
}
