package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo comprobantes electrónicos (usable con pool o tx).
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

// Create persiste el comprobante. Los UNIQUE de invoice_id y access_key resuelven
// las carreras entre dos generaciones simultáneas.
func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_documents (id, invoice_id, access_key, xml_content, authority_response, status,
		                              authorization_number, authorization_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.InvoiceID, doc.AccessKey, doc.XMLContent, []byte(doc.AuthorityResponse), doc.Status,
		nullIfEmpty(doc.AuthorizationNumber), doc.AuthorizationDate, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("fiscal_documents.create", "la factura %s ya tiene comprobante", doc.InvoiceID)
		}
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	return nil
}

// Update sobrescribe la respuesta del SRI; clave y XML no cambian.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	query := `
		UPDATE fiscal_documents
		SET authority_response   = $2,
		    status               = $3,
		    authorization_number = $4,
		    authorization_date   = $5,
		    updated_at           = $6
		WHERE invoice_id = $1`
	tag, err := r.q.Exec(ctx, query,
		doc.InvoiceID, []byte(doc.AuthorityResponse), doc.Status,
		nullIfEmpty(doc.AuthorizationNumber), doc.AuthorizationDate, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("fiscal_documents.update", "comprobante de la factura", doc.InvoiceID)
	}
	return nil
}

// GetByInvoiceID obtiene el comprobante de la factura.
func (r *FiscalDocumentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	query := `
		SELECT id, invoice_id, access_key, xml_content, authority_response, status,
		       authorization_number, authorization_date, created_at, updated_at
		FROM fiscal_documents WHERE invoice_id = $1`
	var d entity.FiscalDocument
	var response []byte
	var authNumber *string
	err := r.q.QueryRow(ctx, query, invoiceID).Scan(
		&d.ID, &d.InvoiceID, &d.AccessKey, &d.XMLContent, &response, &d.Status,
		&authNumber, &d.AuthorizationDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal document: %w", err)
	}
	d.AuthorityResponse = response
	d.AuthorizationNumber = derefStr(authNumber)
	return &d, nil
}

// List comprobantes con datos de factura y cliente, más recientes primero.
func (r *FiscalDocumentRepo) List(ctx context.Context, f repository.FiscalDocumentFilter) ([]*entity.FiscalDocumentListItem, int, error) {
	var total int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM fiscal_documents WHERE ($1 = '' OR status = $1)`, f.Status,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count fiscal documents: %w", err)
	}

	query := `
		SELECT d.id, d.invoice_id, d.access_key, d.status, d.authorization_number, d.authorization_date,
		       d.created_at, d.updated_at,
		       i.invoice_number, i.total_amount, i.status,
		       COALESCE(c.name, ''), COALESCE(c.tax_id, '')
		FROM fiscal_documents d
		JOIN invoices i ON i.id = d.invoice_id
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE ($1 = '' OR d.status = $1)
		ORDER BY d.created_at DESC, d.access_key DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, f.Status, f.Limit, f.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list fiscal documents: %w", err)
	}
	defer rows.Close()
	list := []*entity.FiscalDocumentListItem{}
	for rows.Next() {
		var it entity.FiscalDocumentListItem
		var authNumber *string
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.AccessKey, &it.Status, &authNumber, &it.AuthorizationDate,
			&it.CreatedAt, &it.UpdatedAt,
			&it.InvoiceNumber, &it.TotalAmount, &it.InvoiceStatus,
			&it.ClientName, &it.ClientTaxID,
		); err != nil {
			return nil, 0, fmt.Errorf("scan fiscal document: %w", err)
		}
		it.AuthorizationNumber = derefStr(authNumber)
		list = append(list, &it)
	}
	return list, total, rows.Err()
}
