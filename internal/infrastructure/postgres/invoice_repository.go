package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, invoice_number, sequential, client_id, issue_date, due_date,
	subtotal, tax_amount, total_amount, status, admin_status,
	admin_notes, admin_reviewed_by, admin_reviewed_at, notes, created_by,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var adminNotes, reviewedBy, notes, createdBy *string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.Sequential, &inv.ClientID, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.AdminStatus,
		&adminNotes, &reviewedBy, &inv.AdminReviewedAt, &notes, &createdBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.AdminNotes = derefStr(adminNotes)
	inv.AdminReviewedBy = derefStr(reviewedBy)
	inv.Notes = derefStr(notes)
	inv.CreatedBy = derefStr(createdBy)
	return &inv, nil
}

// Create persiste la cabecera; sequential lo asigna la secuencia de la tabla.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, invoice_number, client_id, issue_date, due_date,
		                      subtotal, tax_amount, total_amount, status, admin_status,
		                      notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING sequential`
	err := r.q.QueryRow(ctx, query,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.Status, inv.AdminStatus,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.CreatedBy), inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.Sequential)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("invoices.create", "el número %s ya existe", inv.InvoiceNumber)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de la factura.
func (r *InvoiceRepo) CreateItem(ctx context.Context, it *entity.InvoiceItem) error {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_items (id, invoice_id, product_id, description, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.InvoiceID, nullIfEmpty(it.ProductID), it.Description, it.Quantity, it.UnitPrice, it.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetForUpdate obtiene la cabecera y bloquea la fila hasta el fin de la transacción.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice for update: %w", err)
	}
	return inv, nil
}

// GetItems obtiene las líneas en orden de inserción.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, product_id, description, quantity, unit_price, total_price
		FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		var productID *string
		if err := rows.Scan(&it.ID, &it.InvoiceID, &productID, &it.Description, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		it.ProductID = derefStr(productID)
		list = append(list, &it)
	}
	return list, rows.Err()
}

// List aplica el filtro estructurado y devuelve la página junto con el total.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.AdminStatus != "" {
		add("admin_status = $%d", f.AdminStatus)
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY created_at DESC, invoice_number DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, clause, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	list := []*entity.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, total, rows.Err()
}

// LastSuffixOn mayor sufijo numérico con prefijo FAC-YYYYMMDD- (el sufijo empieza en la posición 14).
func (r *InvoiceRepo) LastSuffixOn(ctx context.Context, day time.Time) (int, error) {
	const q = `
		SELECT COALESCE(MAX(CAST(substring(invoice_number from 14) AS int)), 0)
		FROM invoices
		WHERE invoice_number LIKE $1 AND substring(invoice_number from 14) ~ '^[0-9]+$'`
	var n int
	if err := r.q.QueryRow(ctx, q, entity.InvoiceNumberPrefix(day)+"%").Scan(&n); err != nil {
		return 0, fmt.Errorf("last invoice suffix of day: %w", err)
	}
	return n, nil
}

// UpdateStatus cambia el estado comercial.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoices.update_status", "factura", id)
	}
	return nil
}

// UpdateAdminReview guarda la revisión administrativa.
func (r *InvoiceRepo) UpdateAdminReview(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET admin_status      = $2,
		    admin_notes       = $3,
		    admin_reviewed_by = $4,
		    admin_reviewed_at = $5,
		    updated_at        = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.AdminStatus, nullIfEmpty(inv.AdminNotes), nullIfEmpty(inv.AdminReviewedBy),
		inv.AdminReviewedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update admin review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoices.admin_review", "factura", inv.ID)
	}
	return nil
}

// Delete elimina la factura; líneas, pagos y comprobante caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("invoices.delete", "factura", id)
	}
	return nil
}

// Stats agregados del tablero: por estado, por estado administrativo, totales y recientes.
func (r *InvoiceRepo) Stats(ctx context.Context, recent int) (*entity.InvoiceStats, error) {
	out := &entity.InvoiceStats{TotalAmount: decimal.Zero}

	byStatus, err := r.buckets(ctx, "status")
	if err != nil {
		return nil, err
	}
	byAdmin, err := r.buckets(ctx, "admin_status")
	if err != nil {
		return nil, err
	}
	out.ByStatus, out.ByAdminStatus = byStatus, byAdmin
	for _, b := range byStatus {
		out.TotalInvoices += b.Count
		out.TotalAmount = out.TotalAmount.Add(b.Amount)
	}

	query := `
		SELECT i.id, i.invoice_number, COALESCE(c.name, ''), i.total_amount, i.status, i.admin_status, i.created_at
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		ORDER BY i.created_at DESC, i.invoice_number DESC
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, recent)
	if err != nil {
		return nil, fmt.Errorf("recent invoices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ri entity.RecentInvoice
		if err := rows.Scan(&ri.ID, &ri.InvoiceNumber, &ri.ClientName, &ri.TotalAmount, &ri.Status, &ri.AdminStatus, &ri.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent invoice: %w", err)
		}
		out.Recent = append(out.Recent, ri)
	}
	return out, rows.Err()
}

// buckets agrupa por la columna indicada (solo status o admin_status).
func (r *InvoiceRepo) buckets(ctx context.Context, column string) ([]entity.StatusBucket, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM invoices GROUP BY %[1]s ORDER BY %[1]s`, column)
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stats by %s: %w", column, err)
	}
	defer rows.Close()
	var list []entity.StatusBucket
	for rows.Next() {
		var b entity.StatusBucket
		if err := rows.Scan(&b.Status, &b.Count, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
