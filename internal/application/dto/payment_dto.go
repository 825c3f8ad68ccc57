package dto

import "github.com/shopspring/decimal"

// PaymentRequest body para registrar o modificar un pago.
// InvoiceID solo se usa en POST /api/payments; PaymentDate en formato YYYY-MM-DD.
type PaymentRequest struct {
	InvoiceID       string          `json:"invoice_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     string          `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// PaymentResponse pago en respuestas.
type PaymentResponse struct {
	ID              string          `json:"id"`
	InvoiceID       string          `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     string          `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

// PaymentSummaryDTO resumen de cobro de una factura.
type PaymentSummaryDTO struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	IsPaid          bool            `json:"is_paid"`
}

// PaymentResult pago registrado junto con el estado comercial resultante de la factura.
type PaymentResult struct {
	Payment       PaymentResponse `json:"payment"`
	InvoiceStatus string          `json:"invoice_status"`
}

// PaymentListResponse respuesta de GET /api/payments/invoice/:invoiceId.
type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Summary  PaymentSummaryDTO `json:"summary"`
}
