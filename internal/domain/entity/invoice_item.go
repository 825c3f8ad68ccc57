package entity

import (
	"github.com/shopspring/decimal"
)

// InvoiceItem línea de una factura. ProductID vacío indica un concepto sin inventario.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal // Quantity × UnitPrice
}

// LineTotal cantidad × precio unitario, sin redondeo.
func (it *InvoiceItem) LineTotal() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

// HasProduct indica si la línea afecta inventario.
func (it *InvoiceItem) HasProduct() bool {
	return it.ProductID != ""
}
