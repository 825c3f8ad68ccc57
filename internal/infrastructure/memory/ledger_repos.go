package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

// ── Pagos ────────────────────────────────────────────────────────────────────

// PaymentRepo implementa repository.PaymentRepository.
type PaymentRepo struct{ run runFunc }

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	return r.run(ctx, func(st *state) error {
		if p.ID == "" {
			p.ID = newID()
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *PaymentRepo) Update(ctx context.Context, p *entity.Payment) error {
	return r.run(ctx, func(st *state) error {
		if _, ok := st.payments[p.ID]; !ok {
			return domain.NotFound("payments.update", "pago", p.ID)
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *PaymentRepo) Delete(ctx context.Context, id string) error {
	return r.run(ctx, func(st *state) error {
		if _, ok := st.payments[id]; !ok {
			return domain.NotFound("payments.delete", "pago", id)
		}
		delete(st.payments, id)
		return nil
	})
}

func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	var out *entity.Payment
	err := r.run(ctx, func(st *state) error {
		if p, ok := st.payments[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

// ListByInvoice pagos de la factura, del más reciente al más antiguo.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	out := []*entity.Payment{}
	err := r.run(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.InvoiceID == invoiceID {
				p := p
				out = append(out, &p)
			}
		}
		sortByCreatedDesc(out,
			func(p *entity.Payment) int64 { return p.CreatedAt.UnixNano() },
			func(p *entity.Payment) string { return p.ID })
		return nil
	})
	return out, err
}

func (r *PaymentRepo) SumByInvoice(ctx context.Context, invoiceID, excludeID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.run(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.InvoiceID == invoiceID && p.ID != excludeID {
				sum = sum.Add(p.Amount)
			}
		}
		return nil
	})
	return sum, err
}

// ── Inventario ───────────────────────────────────────────────────────────────

// StockRepo implementa repository.StockRepository.
type StockRepo struct{ run runFunc }

var _ repository.StockRepository = (*StockRepo)(nil)

func (r *StockRepo) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.run(ctx, func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

// Decrement resta solo si alcanza, igual que el UPDATE condicionado de postgres.
func (r *StockRepo) Decrement(ctx context.Context, id string, qty decimal.Decimal) (bool, error) {
	changed := false
	err := r.run(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.StockQuantity.LessThan(qty) {
			return nil
		}
		p.StockQuantity = p.StockQuantity.Sub(qty)
		st.products[id] = p
		changed = true
		return nil
	})
	return changed, err
}

func (r *StockRepo) Increment(ctx context.Context, id string, qty decimal.Decimal) (bool, error) {
	changed := false
	err := r.run(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return nil
		}
		p.StockQuantity = p.StockQuantity.Add(qty)
		st.products[id] = p
		changed = true
		return nil
	})
	return changed, err
}

// ── Clientes ─────────────────────────────────────────────────────────────────

// ClientRepo implementa repository.ClientRepository.
type ClientRepo struct{ run runFunc }

var _ repository.ClientRepository = (*ClientRepo)(nil)

func (r *ClientRepo) GetByID(ctx context.Context, id string) (*entity.Client, error) {
	var out *entity.Client
	err := r.run(ctx, func(st *state) error {
		if c, ok := st.clients[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

// ── Comprobantes electrónicos ────────────────────────────────────────────────

// FiscalDocumentRepo implementa repository.FiscalDocumentRepository.
type FiscalDocumentRepo struct{ run runFunc }

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	const op = "fiscal_documents.create"
	return r.run(ctx, func(st *state) error {
		if _, ok := st.documents[doc.InvoiceID]; ok {
			return domain.Conflict(op, "la factura %s ya tiene comprobante", doc.InvoiceID)
		}
		for _, other := range st.documents {
			if other.AccessKey == doc.AccessKey {
				return domain.Conflict(op, "la clave de acceso %s ya está registrada", doc.AccessKey)
			}
		}
		if doc.ID == "" {
			doc.ID = newID()
		}
		st.documents[doc.InvoiceID] = *doc
		return nil
	})
}

func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	return r.run(ctx, func(st *state) error {
		cur, ok := st.documents[doc.InvoiceID]
		if !ok {
			return domain.NotFound("fiscal_documents.update", "comprobante de la factura", doc.InvoiceID)
		}
		cur.AuthorityResponse = doc.AuthorityResponse
		cur.Status = doc.Status
		cur.AuthorizationNumber = doc.AuthorizationNumber
		cur.AuthorizationDate = doc.AuthorizationDate
		cur.UpdatedAt = doc.UpdatedAt
		st.documents[doc.InvoiceID] = cur
		return nil
	})
}

func (r *FiscalDocumentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	var out *entity.FiscalDocument
	err := r.run(ctx, func(st *state) error {
		if d, ok := st.documents[invoiceID]; ok {
			out = &d
		}
		return nil
	})
	return out, err
}

func (r *FiscalDocumentRepo) List(ctx context.Context, f repository.FiscalDocumentFilter) ([]*entity.FiscalDocumentListItem, int, error) {
	var (
		out   []*entity.FiscalDocumentListItem
		total int
	)
	err := r.run(ctx, func(st *state) error {
		var all []*entity.FiscalDocumentListItem
		for _, d := range st.documents {
			if f.Status != "" && d.Status != f.Status {
				continue
			}
			inv := st.invoices[d.InvoiceID]
			client := st.clients[inv.ClientID]
			all = append(all, &entity.FiscalDocumentListItem{
				FiscalDocument: d,
				InvoiceNumber:  inv.InvoiceNumber,
				TotalAmount:    inv.TotalAmount,
				InvoiceStatus:  inv.Status,
				ClientName:     client.Name,
				ClientTaxID:    client.TaxID,
			})
		}
		sortByCreatedDesc(all,
			func(i *entity.FiscalDocumentListItem) int64 { return i.CreatedAt.UnixNano() },
			func(i *entity.FiscalDocumentListItem) string { return i.AccessKey })
		total = len(all)
		out = paginate(all, f.Limit, f.Offset())
		return nil
	})
	return out, total, err
}
