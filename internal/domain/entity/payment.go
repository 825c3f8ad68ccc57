package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment abono registrado contra una factura.
type Payment struct {
	ID              string
	InvoiceID       string
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentSummary resumen de cobro de una factura.
type PaymentSummary struct {
	TotalAmount     decimal.Decimal
	TotalPaid       decimal.Decimal
	RemainingAmount decimal.Decimal
	IsPaid          bool
}

// SummarizePayments calcula el resumen a partir del total facturado y los pagos.
func SummarizePayments(total decimal.Decimal, payments []*Payment) PaymentSummary {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return PaymentSummary{
		TotalAmount:     total,
		TotalPaid:       paid,
		RemainingAmount: remaining,
		IsPaid:          paid.GreaterThanOrEqual(total),
	}
}
