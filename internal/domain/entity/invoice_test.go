package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Escenario: 3 × 10.00 + 1 × 5.00 con IVA 16 % → 35.00 / 5.60 / 40.60.
func TestComputeTotals_DosLineasIVA16(t *testing.T) {
	items := []*entity.InvoiceItem{
		{Quantity: dec("3"), UnitPrice: dec("10")},
		{Quantity: dec("1"), UnitPrice: dec("5")},
	}
	totals := entity.ComputeTotals(items, dec("0.16"))

	assert.Equal(t, "35.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "5.60", totals.Tax.StringFixed(2))
	assert.Equal(t, "40.60", totals.Total.StringFixed(2))
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax)), "total debe ser subtotal + impuesto")
}

func TestComputeTotals_RedondeoMitadArriba(t *testing.T) {
	items := []*entity.InvoiceItem{{Quantity: dec("1"), UnitPrice: dec("0.03")}}
	totals := entity.ComputeTotals(items, dec("0.16"))
	// 0.03 × 0.16 = 0.0048 → 0.00
	assert.Equal(t, "0.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "0.03", totals.Total.StringFixed(2))
}

func TestFormatInvoiceNumber(t *testing.T) {
	day := time.Date(2024, time.March, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "FAC-20240307-0001", entity.FormatInvoiceNumber(day, 1))
	assert.Equal(t, "FAC-20240307-0123", entity.FormatInvoiceNumber(day, 123))
}

func TestAdminTransitionEffect(t *testing.T) {
	cases := []struct {
		from, to entity.AdminStatus
		want     entity.StockEffect
	}{
		{entity.AdminPending, entity.AdminRejected, entity.StockRelease},
		{entity.AdminApproved, entity.AdminRejected, entity.StockRelease},
		{entity.AdminExpired, entity.AdminRejected, entity.StockRelease},
		{entity.AdminRejected, entity.AdminRejected, entity.StockNone},
		{entity.AdminRejected, entity.AdminApproved, entity.StockReserve},
		{entity.AdminRejected, entity.AdminPending, entity.StockNone},
		{entity.AdminRejected, entity.AdminExpired, entity.StockNone},
		{entity.AdminPending, entity.AdminApproved, entity.StockNone},
		{entity.AdminApproved, entity.AdminExpired, entity.StockNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, entity.AdminTransitionEffect(c.from, c.to), "%s → %s", c.from, c.to)
	}
}

func TestCheckAdminTransition_RechazadaSoloVuelveAAprobada(t *testing.T) {
	assert.NoError(t, entity.CheckAdminTransition(entity.AdminRejected, entity.AdminApproved))
	assert.NoError(t, entity.CheckAdminTransition(entity.AdminRejected, entity.AdminRejected))
	assert.Error(t, entity.CheckAdminTransition(entity.AdminRejected, entity.AdminPending))
	assert.Error(t, entity.CheckAdminTransition(entity.AdminRejected, entity.AdminExpired))

	for _, from := range []entity.AdminStatus{entity.AdminPending, entity.AdminApproved, entity.AdminExpired} {
		for _, to := range []entity.AdminStatus{entity.AdminPending, entity.AdminApproved, entity.AdminRejected, entity.AdminExpired} {
			assert.NoError(t, entity.CheckAdminTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestStatusFromPayments(t *testing.T) {
	total := dec("40.60")
	assert.Equal(t, entity.StatusDraft, entity.StatusFromPayments(decimal.Zero, total))
	assert.Equal(t, entity.StatusSent, entity.StatusFromPayments(dec("10"), total))
	assert.Equal(t, entity.StatusPaid, entity.StatusFromPayments(dec("40.60"), total))
}

func TestStatusAfterNewPayment(t *testing.T) {
	total := dec("100")
	assert.Equal(t, entity.StatusSent, entity.StatusAfterNewPayment(entity.StatusDraft, dec("10"), total),
		"el primer pago parcial avanza un borrador a sent")
	assert.Equal(t, entity.StatusSent, entity.StatusAfterNewPayment(entity.StatusSent, dec("50"), total))
	assert.Equal(t, entity.StatusPaid, entity.StatusAfterNewPayment(entity.StatusDraft, dec("100"), total))
}

func TestCanSend(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusDraft, AdminStatus: entity.AdminApproved}
	require.NoError(t, inv.CanSend())

	inv.AdminStatus = entity.AdminPending
	assert.Error(t, inv.CanSend(), "no se envía sin aprobación")

	inv.AdminStatus = entity.AdminApproved
	inv.Status = entity.StatusSent
	assert.Error(t, inv.CanSend(), "solo borradores")
}

func TestSummarizePayments(t *testing.T) {
	s := entity.SummarizePayments(dec("40.60"), []*entity.Payment{
		{Amount: dec("20")}, {Amount: dec("10.60")},
	})
	assert.Equal(t, "30.60", s.TotalPaid.StringFixed(2))
	assert.Equal(t, "10.00", s.RemainingAmount.StringFixed(2))
	assert.False(t, s.IsPaid)
}
