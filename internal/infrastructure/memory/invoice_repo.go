package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

func newID() string { return uuid.New().String() }

// InvoiceRepo implementa repository.InvoiceRepository.
type InvoiceRepo struct{ run runFunc }

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	return r.run(ctx, func(st *state) error {
		for _, other := range st.invoices {
			if other.InvoiceNumber == inv.InvoiceNumber {
				return domain.Conflict("invoices.create", "el número %s ya existe", inv.InvoiceNumber)
			}
		}
		if inv.ID == "" {
			inv.ID = newID()
		}
		st.seq++
		inv.Sequential = st.seq
		st.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *InvoiceRepo) CreateItem(ctx context.Context, it *entity.InvoiceItem) error {
	return r.run(ctx, func(st *state) error {
		if _, ok := st.invoices[it.InvoiceID]; !ok {
			return fmt.Errorf("factura %s inexistente", it.InvoiceID)
		}
		if it.ID == "" {
			it.ID = newID()
		}
		st.items[it.InvoiceID] = append(st.items[it.InvoiceID], *it)
		return nil
	})
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.run(ctx, func(st *state) error {
		if inv, ok := st.invoices[id]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

// GetForUpdate equivale a GetByID: la transacción ya tiene el lock del almacén.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	var out []*entity.InvoiceItem
	err := r.run(ctx, func(st *state) error {
		for _, it := range st.items[invoiceID] {
			it := it
			out = append(out, &it)
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	var (
		out   []*entity.Invoice
		total int
	)
	err := r.run(ctx, func(st *state) error {
		var all []*entity.Invoice
		for _, inv := range st.invoices {
			if f.Status != "" && inv.Status != f.Status {
				continue
			}
			if f.AdminStatus != "" && inv.AdminStatus != f.AdminStatus {
				continue
			}
			if f.ClientID != "" && inv.ClientID != f.ClientID {
				continue
			}
			inv := inv
			all = append(all, &inv)
		}
		sortByCreatedDesc(all,
			func(i *entity.Invoice) int64 { return i.CreatedAt.UnixNano() },
			func(i *entity.Invoice) string { return i.InvoiceNumber })
		total = len(all)
		out = paginate(all, f.Limit, f.Offset)
		return nil
	})
	return out, total, err
}

func (r *InvoiceRepo) LastSuffixOn(ctx context.Context, day time.Time) (int, error) {
	last := 0
	err := r.run(ctx, func(st *state) error {
		for _, inv := range st.invoices {
			if n, ok := entity.InvoiceNumberSuffix(inv.InvoiceNumber, day); ok && n > last {
				last = n
			}
		}
		return nil
	})
	return last, err
}

func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error {
	return r.run(ctx, func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok {
			return domain.NotFound("invoices.update_status", "factura", id)
		}
		inv.Status = status
		inv.UpdatedAt = updatedAt
		st.invoices[id] = inv
		return nil
	})
}

func (r *InvoiceRepo) UpdateAdminReview(ctx context.Context, in *entity.Invoice) error {
	return r.run(ctx, func(st *state) error {
		inv, ok := st.invoices[in.ID]
		if !ok {
			return domain.NotFound("invoices.admin_review", "factura", in.ID)
		}
		inv.AdminStatus = in.AdminStatus
		inv.AdminNotes = in.AdminNotes
		inv.AdminReviewedBy = in.AdminReviewedBy
		inv.AdminReviewedAt = in.AdminReviewedAt
		inv.UpdatedAt = in.UpdatedAt
		st.invoices[in.ID] = inv
		return nil
	})
}

func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	return r.run(ctx, func(st *state) error {
		if _, ok := st.invoices[id]; !ok {
			return domain.NotFound("invoices.delete", "factura", id)
		}
		delete(st.invoices, id)
		delete(st.items, id)
		return nil
	})
}

func (r *InvoiceRepo) Stats(ctx context.Context, recent int) (*entity.InvoiceStats, error) {
	out := &entity.InvoiceStats{TotalAmount: decimal.Zero}
	err := r.run(ctx, func(st *state) error {
		byStatus := map[string]*entity.StatusBucket{}
		byAdmin := map[string]*entity.StatusBucket{}
		var statusOrder, adminOrder []string
		add := func(m map[string]*entity.StatusBucket, order *[]string, key string, amount decimal.Decimal) {
			b, ok := m[key]
			if !ok {
				b = &entity.StatusBucket{Status: key, Amount: decimal.Zero}
				m[key] = b
				*order = append(*order, key)
			}
			b.Count++
			b.Amount = b.Amount.Add(amount)
		}

		list := make([]entity.Invoice, 0, len(st.invoices))
		for _, inv := range st.invoices {
			list = append(list, inv)
		}
		sortByCreatedDesc(list,
			func(i entity.Invoice) int64 { return i.CreatedAt.UnixNano() },
			func(i entity.Invoice) string { return i.InvoiceNumber })

		for _, inv := range list {
			add(byStatus, &statusOrder, string(inv.Status), inv.TotalAmount)
			add(byAdmin, &adminOrder, string(inv.AdminStatus), inv.TotalAmount)
			out.TotalInvoices++
			out.TotalAmount = out.TotalAmount.Add(inv.TotalAmount)
		}
		for _, k := range statusOrder {
			out.ByStatus = append(out.ByStatus, *byStatus[k])
		}
		for _, k := range adminOrder {
			out.ByAdminStatus = append(out.ByAdminStatus, *byAdmin[k])
		}
		for _, inv := range paginate(list, recent, 0) {
			out.Recent = append(out.Recent, entity.RecentInvoice{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientName:    st.clients[inv.ClientID].Name,
				TotalAmount:   inv.TotalAmount,
				Status:        inv.Status,
				AdminStatus:   inv.AdminStatus,
				CreatedAt:     inv.CreatedAt,
			})
		}
		return nil
	})
	return out, err
}
