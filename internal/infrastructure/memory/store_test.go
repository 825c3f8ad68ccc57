package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddProduct(entity.Product{ID: "p1", Name: "Cable UTP", StockQuantity: dec("10"), IsActive: true})
	s.AddClient(entity.Client{ID: "c1", Name: "Comercial Andes", Email: "andes@example.com", TaxID: "1790011674001", IsActive: true})
	return s
}

// ── Transacciones ────────────────────────────────────────────────────────────

func TestRunInTx_ErrorDescartaCambios(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("falla")

	err := s.RunInTx(ctx, func(r billing.Repos) error {
		ok, err := r.Stock.Decrement(ctx, "p1", dec("4"))
		require.NoError(t, err)
		require.True(t, ok)
		inv := &entity.Invoice{InvoiceNumber: "FAC-20240307-0001", ClientID: "c1"}
		require.NoError(t, r.Invoices.Create(ctx, inv))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, _ := s.Product("p1")
	assert.Equal(t, "10", p.StockQuantity.String(), "el stock debe quedar intacto tras el rollback")
	list, total, err := s.Repos().Invoices.List(ctx, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestRunInTx_CommitPublicaCambios(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(r billing.Repos) error {
		_, err := r.Stock.Decrement(ctx, "p1", dec("4"))
		return err
	})
	require.NoError(t, err)

	p, _ := s.Product("p1")
	assert.Equal(t, "6", p.StockQuantity.String())
}

func TestRunInTx_ContextoCancelado(t *testing.T) {
	s := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTx(ctx, func(billing.Repos) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// ── Inventario ───────────────────────────────────────────────────────────────

func TestStock_DecrementoCondicionado(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	stock := s.Repos().Stock

	ok, err := stock.Decrement(ctx, "p1", dec("11"))
	require.NoError(t, err)
	assert.False(t, ok, "no debe restar más de lo disponible")

	ok, err = stock.Decrement(ctx, "p1", dec("10"))
	require.NoError(t, err)
	assert.True(t, ok, "debe poder llevar el stock exactamente a cero")

	ok, err = stock.Decrement(ctx, "inexistente", dec("1"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = stock.Increment(ctx, "inexistente", dec("1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// Reservas concurrentes: nunca se vende más de lo que hay.
func TestStock_ReservasConcurrentesNoSobrevenden(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTx(ctx, func(r billing.Repos) error {
				ok, err := r.Stock.Decrement(ctx, "p1", dec("1"))
				if err != nil {
					return err
				}
				if !ok {
					return domain.InsufficientStock("test", "p1")
				}
				return nil
			})
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, granted)
	p, _ := s.Product("p1")
	assert.True(t, p.StockQuantity.IsZero())
}

// ── Facturas ─────────────────────────────────────────────────────────────────

func TestInvoices_SecuencialYConsecutivoDiario(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	repo := s.Repos().Invoices
	day := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	a := &entity.Invoice{InvoiceNumber: entity.FormatInvoiceNumber(day, 1), ClientID: "c1", IssueDate: day}
	b := &entity.Invoice{InvoiceNumber: entity.FormatInvoiceNumber(day, 2), ClientID: "c1", IssueDate: day}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, int64(1), a.Sequential)
	assert.Equal(t, int64(2), b.Sequential)

	n, err := repo.LastSuffixOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.LastSuffixOn(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, n)

	dup := &entity.Invoice{InvoiceNumber: a.InvoiceNumber, ClientID: "c1"}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)

	// Borrar la primera deja un hueco; el mayor sigue siendo 2.
	require.NoError(t, repo.Delete(ctx, a.ID))
	n, err = repo.LastSuffixOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInvoices_ListFiltraYPagina(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	repo := s.Repos().Invoices
	base := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		inv := &entity.Invoice{
			InvoiceNumber: entity.FormatInvoiceNumber(base, i),
			ClientID:      "c1",
			Status:        entity.StatusDraft,
			AdminStatus:   entity.AdminPending,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 0 {
			inv.AdminStatus = entity.AdminApproved
		}
		require.NoError(t, repo.Create(ctx, inv))
	}

	list, total, err := repo.List(ctx, repository.InvoiceFilter{AdminStatus: entity.AdminApproved})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "FAC-20240307-0004", list[0].InvoiceNumber, "orden más reciente primero")

	list, total, err = repo.List(ctx, repository.InvoiceFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, list, 1)
	assert.Equal(t, "FAC-20240307-0001", list[0].InvoiceNumber)
}

func TestInvoices_StatsAgrupaPorEstado(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	repo := s.Repos().Invoices
	now := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &entity.Invoice{InvoiceNumber: "FAC-20240307-0001", ClientID: "c1",
		Status: entity.StatusDraft, AdminStatus: entity.AdminPending, TotalAmount: dec("10"), CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &entity.Invoice{InvoiceNumber: "FAC-20240307-0002", ClientID: "c1",
		Status: entity.StatusSent, AdminStatus: entity.AdminApproved, TotalAmount: dec("20.50"), CreatedAt: now.Add(time.Minute)}))

	stats, err := repo.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalInvoices)
	assert.Equal(t, "30.50", stats.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, stats.CountAdmin(entity.AdminApproved))
	assert.Equal(t, 1, stats.CountAdmin(entity.AdminPending))
	require.Len(t, stats.Recent, 1)
	assert.Equal(t, "FAC-20240307-0002", stats.Recent[0].InvoiceNumber)
	assert.Equal(t, "Comercial Andes", stats.Recent[0].ClientName)
}

// ── Comprobantes y pagos ─────────────────────────────────────────────────────

func TestDocuments_UnoPorFactura(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	docs := s.Repos().Documents

	require.NoError(t, docs.Create(ctx, &entity.FiscalDocument{InvoiceID: "i1", AccessKey: "k1", Status: entity.FiscalStatusReturned}))
	assert.ErrorIs(t, docs.Create(ctx, &entity.FiscalDocument{InvoiceID: "i1", AccessKey: "k2"}), domain.ErrConflict)
	assert.ErrorIs(t, docs.Create(ctx, &entity.FiscalDocument{InvoiceID: "i2", AccessKey: "k1"}), domain.ErrConflict)

	require.NoError(t, docs.Update(ctx, &entity.FiscalDocument{InvoiceID: "i1", Status: entity.FiscalStatusAuthorized}))
	got, err := docs.GetByInvoiceID(ctx, "i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "k1", got.AccessKey, "la clave no cambia al actualizar")
	assert.True(t, got.IsAuthorized())

	list, total, err := docs.List(ctx, repository.FiscalDocumentFilter{Status: entity.FiscalStatusAuthorized, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

func TestPayments_SumaExcluyendo(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	pays := s.Repos().Payments

	a := &entity.Payment{InvoiceID: "i1", Amount: dec("10.25")}
	b := &entity.Payment{InvoiceID: "i1", Amount: dec("4.75")}
	require.NoError(t, pays.Create(ctx, a))
	require.NoError(t, pays.Create(ctx, b))
	require.NoError(t, pays.Create(ctx, &entity.Payment{InvoiceID: "otra", Amount: dec("99")}))

	sum, err := pays.SumByInvoice(ctx, "i1", "")
	require.NoError(t, err)
	assert.Equal(t, "15.00", sum.StringFixed(2))

	sum, err = pays.SumByInvoice(ctx, "i1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.75", sum.StringFixed(2))

	require.NoError(t, pays.Delete(ctx, b.ID))
	assert.ErrorIs(t, pays.Delete(ctx, b.ID), domain.ErrNotFound)
}
