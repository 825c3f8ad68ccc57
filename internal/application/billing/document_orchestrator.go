package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// DocumentConfig emisor y tarifa usados al construir el comprobante.
type DocumentConfig struct {
	Issuer  sri.Issuer
	TaxRate decimal.Decimal
}

// DocumentOrchestrator genera y reenvía el comprobante electrónico de una factura:
//
//	clave de acceso → XML factura v1.1.0 → firma → envío al SRI → persistencia
//
// Todo corre en una transacción serializable: si algo falla no queda fila escrita.
type DocumentOrchestrator struct {
	tx        TxRunner
	reads     Repos
	keys      *sri.AccessKeyGenerator
	builder   DocumentBuilder
	signer    pkgsri.Signer
	authority FiscalAuthorizationClient
	audit     Auditor
	log       *logger.Logger
	cfg       DocumentConfig
	now       Clock
}

// NewDocumentOrchestrator construye el orquestador con todas sus dependencias.
func NewDocumentOrchestrator(
	tx TxRunner,
	reads Repos,
	keys *sri.AccessKeyGenerator,
	builder DocumentBuilder,
	signer pkgsri.Signer,
	authority FiscalAuthorizationClient,
	audit Auditor,
	log *logger.Logger,
	cfg DocumentConfig,
) *DocumentOrchestrator {
	if audit == nil {
		audit = NopAuditor()
	}
	if log == nil {
		log = logger.Nop()
	}
	if keys == nil {
		keys = sri.NewAccessKeyGenerator(sri.LayoutOfficial)
	}
	return &DocumentOrchestrator{
		tx:        tx,
		reads:     reads,
		keys:      keys,
		builder:   builder,
		signer:    signer,
		authority: authority,
		audit:     audit,
		log:       log.Component("fiscal_documents"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (o *DocumentOrchestrator) WithClock(c Clock) *DocumentOrchestrator {
	o.now = c
	return o
}

// accessKey deriva la clave de acceso de la factura. Es determinista: el código
// numérico se toma del secuencial, así que una misma factura siempre da la misma clave.
func (o *DocumentOrchestrator) accessKey(inv *entity.Invoice, client *entity.Client) (string, error) {
	return o.keys.Generate(sri.AccessKeyParams{
		IssueDate:        inv.IssueDate,
		DocumentType:     pkgsri.DocTypeFactura,
		IssuerRUC:        o.cfg.Issuer.RUC,
		Environment:      o.cfg.Issuer.Environment,
		Establishment:    o.cfg.Issuer.Establishment,
		EmissionPoint:    o.cfg.Issuer.EmissionPoint,
		Sequential:       inv.Sequential,
		NumericCode:      fmt.Sprintf("%08d", inv.Sequential%100_000_000),
		EmissionType:     pkgsri.EmissionTypeNormal,
		DocumentTypeCode: pkgsri.DocTypeFactura,
		RecipientID:      client.TaxID,
	})
}

// Generate crea el comprobante de la factura. Precondiciones: la factura existe, tiene
// al menos una línea, está aprobada, no está anulada y no tiene comprobante previo.
// Si el SRI autoriza y la factura sigue en draft, pasa a sent. Un resultado no autorizado
// se guarda con su estado para poder reenviarlo después.
func (o *DocumentOrchestrator) Generate(ctx context.Context, p entity.Principal, invoiceID string) (*dto.FiscalDocumentResponse, error) {
	const op = "fiscal_documents.generate"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}

	var (
		inv    *entity.Invoice
		doc    *entity.FiscalDocument
		result *sri.AuthorizationResult
	)
	err := o.tx.RunInTx(ctx, func(r Repos) error {
		// ── 1. Precondiciones ─────────────────────────────────────────────────
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		items, err := r.Invoices.GetItems(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("obtener líneas: %w", err)
		}
		if len(items) == 0 {
			return domain.Validation(op, "la factura no tiene ítems")
		}
		existing, err := r.Documents.GetByInvoiceID(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("obtener comprobante: %w", err)
		}
		if existing != nil {
			return domain.Conflict(op, "la factura ya tiene un comprobante electrónico")
		}
		if inv.Status == entity.StatusCancelled {
			return domain.Conflict(op, "la factura está anulada")
		}
		if inv.AdminStatus != entity.AdminApproved {
			return domain.Conflict(op, "la factura no está aprobada (estado administrativo %s)", inv.AdminStatus)
		}
		client, err := r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return fmt.Errorf("obtener cliente: %w", err)
		}
		if client == nil {
			return domain.NotFound(op, "cliente", inv.ClientID)
		}

		// ── 2. Clave de acceso, XML y firma ───────────────────────────────────
		key, err := o.accessKey(inv, client)
		if err != nil {
			return domain.Validation(op, "clave de acceso: %s", err.Error())
		}
		xmlBytes, err := o.builder.Build(sri.DocumentInput{
			Issuer: o.cfg.Issuer, AccessKey: key, Invoice: inv, Items: items, Client: client, TaxRate: o.cfg.TaxRate,
		})
		if err != nil {
			return fmt.Errorf("construir XML: %w", err)
		}
		signed, err := o.signer.Sign(xmlBytes)
		if err != nil {
			return fmt.Errorf("firmar XML: %w", err)
		}

		// ── 3. Envío al SRI (sin reintentos) ──────────────────────────────────
		result, err = o.submit(ctx, op, signed, key)
		if err != nil {
			return err
		}

		// ── 4. Persistencia ───────────────────────────────────────────────────
		now := o.now()
		doc = &entity.FiscalDocument{
			InvoiceID:           inv.ID,
			AccessKey:           key,
			XMLContent:          string(signed),
			AuthorityResponse:   result.Payload(),
			Status:              result.Status,
			AuthorizationNumber: result.AuthorizationNumber,
			AuthorizationDate:   result.AuthorizationDate,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		return o.advanceOnAuthorization(ctx, r, inv, result, now)
	})
	if err != nil {
		o.recordFailure(ctx, p, invoiceID, err)
		return nil, err
	}

	o.log.Info().Str("invoice_id", inv.ID).Str("access_key", doc.AccessKey).
		Str("sri_status", doc.Status).Msg("comprobante generado")
	o.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditDocumentGenerated, InvoiceID: inv.ID,
		Success: result.Authorized(), Message: doc.Status, Metadata: doc.AuthorityResponse,
	})
	resp := toFiscalDocumentResponse(doc, result.Messages)
	resp.InvoiceStatus = string(inv.Status)
	return &resp, nil
}

// Resend reenvía el XML firmado almacenado y sobrescribe estado, respuesta y datos de
// autorización del mismo comprobante. La clave se recalcula y debe coincidir con la guardada.
func (o *DocumentOrchestrator) Resend(ctx context.Context, p entity.Principal, invoiceID string) (*dto.FiscalDocumentResponse, error) {
	const op = "fiscal_documents.resend"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}

	var (
		inv    *entity.Invoice
		doc    *entity.FiscalDocument
		result *sri.AuthorizationResult
	)
	err := o.tx.RunInTx(ctx, func(r Repos) error {
		var err error
		inv, err = r.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return domain.NotFound(op, "factura", invoiceID)
		}
		doc, err = r.Documents.GetByInvoiceID(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("obtener comprobante: %w", err)
		}
		if doc == nil {
			return domain.NotFound(op, "comprobante de la factura", invoiceID)
		}
		if doc.IsAuthorized() {
			return domain.Conflict(op, "el comprobante ya está autorizado")
		}
		client, err := r.Clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return fmt.Errorf("obtener cliente: %w", err)
		}
		if client == nil {
			return domain.NotFound(op, "cliente", inv.ClientID)
		}
		key, err := o.accessKey(inv, client)
		if err != nil {
			return domain.Validation(op, "clave de acceso: %s", err.Error())
		}
		if key != doc.AccessKey {
			return domain.Conflict(op, "la clave de acceso recalculada no coincide con la almacenada")
		}

		result, err = o.submit(ctx, op, []byte(doc.XMLContent), doc.AccessKey)
		if err != nil {
			return err
		}

		now := o.now()
		doc.AuthorityResponse = result.Payload()
		doc.Status = result.Status
		doc.AuthorizationNumber = result.AuthorizationNumber
		doc.AuthorizationDate = result.AuthorizationDate
		doc.UpdatedAt = now
		if err := r.Documents.Update(ctx, doc); err != nil {
			return err
		}
		return o.advanceOnAuthorization(ctx, r, inv, result, now)
	})
	if err != nil {
		o.recordFailure(ctx, p, invoiceID, err)
		return nil, err
	}

	o.log.Info().Str("invoice_id", inv.ID).Str("sri_status", doc.Status).Msg("comprobante reenviado")
	o.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditDocumentResent, InvoiceID: inv.ID,
		Success: result.Authorized(), Message: doc.Status, Metadata: doc.AuthorityResponse,
	})
	resp := toFiscalDocumentResponse(doc, result.Messages)
	resp.InvoiceStatus = string(inv.Status)
	return &resp, nil
}

func (o *DocumentOrchestrator) submit(ctx context.Context, op string, document []byte, key string) (*sri.AuthorizationResult, error) {
	result, err := o.authority.Submit(ctx, document, key)
	if err != nil {
		if domain.KindOf(err) == domain.ErrExternalService {
			return nil, err
		}
		return nil, domain.ExternalService(op, "SRI", err)
	}
	if result == nil || result.Status == "" {
		return nil, domain.ExternalService(op, "SRI", errors.New("respuesta sin estado"))
	}
	return result, nil
}

// advanceOnAuthorization pasa la factura de draft a sent cuando el SRI autoriza.
func (o *DocumentOrchestrator) advanceOnAuthorization(ctx context.Context, r Repos, inv *entity.Invoice, result *sri.AuthorizationResult, now time.Time) error {
	if !result.Authorized() || inv.Status != entity.StatusDraft {
		return nil
	}
	inv.Status, inv.UpdatedAt = entity.StatusSent, now
	return r.Invoices.UpdateStatus(ctx, inv.ID, entity.StatusSent, now)
}

func (o *DocumentOrchestrator) recordFailure(ctx context.Context, p entity.Principal, invoiceID string, err error) {
	if domain.KindOf(err) != domain.ErrExternalService {
		return
	}
	o.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("envío al SRI fallido")
	o.audit.Record(ctx, entity.AuditEvent{
		UserID: p.UserID, Action: entity.AuditDocumentSubmitError, InvoiceID: invoiceID, Message: err.Error(),
	})
}

// GetByInvoice devuelve el comprobante de la factura.
func (o *DocumentOrchestrator) GetByInvoice(ctx context.Context, p entity.Principal, invoiceID string) (*dto.FiscalDocumentResponse, error) {
	const op = "fiscal_documents.get"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	doc, err := o.reads.Documents.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if doc == nil {
		return nil, domain.NotFound(op, "comprobante de la factura", invoiceID)
	}
	resp := toFiscalDocumentResponse(doc, storedMessages(doc))
	return &resp, nil
}

// List lista comprobantes con filtro por estado y paginación por página.
func (o *DocumentOrchestrator) List(ctx context.Context, p entity.Principal, in dto.FiscalDocumentListRequest) (*dto.FiscalDocumentListResponse, error) {
	const op = "fiscal_documents.list"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	filter := repository.FiscalDocumentFilter{Status: in.Status, Page: in.Page, Limit: in.Limit}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	rows, total, err := o.reads.Documents.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := &dto.FiscalDocumentListResponse{
		Documents: make([]dto.FiscalDocumentListItemDTO, 0, len(rows)),
		Pagination: dto.PaginationDTO{
			Page: filter.Page, Limit: filter.Limit, Total: total,
			TotalPages: (total + filter.Limit - 1) / filter.Limit,
		},
	}
	for _, row := range rows {
		item := dto.FiscalDocumentListItemDTO{
			FiscalDocumentResponse: toFiscalDocumentResponse(&row.FiscalDocument, nil),
			InvoiceNumber:          row.InvoiceNumber,
			TotalAmount:            row.TotalAmount,
			ClientName:             row.ClientName,
			ClientTaxID:            row.ClientTaxID,
		}
		item.InvoiceStatus = string(row.InvoiceStatus)
		out.Documents = append(out.Documents, item)
	}
	return out, nil
}

// DownloadXML devuelve el XML almacenado byte a byte con el nombre factura-<clave>.xml.
func (o *DocumentOrchestrator) DownloadXML(ctx context.Context, p entity.Principal, invoiceID string) (*dto.XMLDownload, error) {
	const op = "fiscal_documents.download"
	if p.Anonymous() {
		return nil, domain.Unauthorized(op)
	}
	doc, err := o.reads.Documents.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if doc == nil {
		return nil, domain.NotFound(op, "comprobante de la factura", invoiceID)
	}
	return &dto.XMLDownload{
		Filename: "factura-" + doc.AccessKey + ".xml",
		Content:  []byte(doc.XMLContent),
	}, nil
}

// storedMessages recupera los mensajes del SRI guardados en la respuesta opaca.
func storedMessages(doc *entity.FiscalDocument) []sri.AuthorityMessage {
	if len(doc.AuthorityResponse) == 0 {
		return nil
	}
	var res sri.AuthorizationResult
	if err := json.Unmarshal(doc.AuthorityResponse, &res); err != nil {
		return nil
	}
	return res.Messages
}
