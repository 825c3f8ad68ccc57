package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusBucket conteo y monto acumulado de facturas en un estado.
type StatusBucket struct {
	Status string
	Count  int
	Amount decimal.Decimal
}

// RecentInvoice fila resumida para el tablero administrativo.
type RecentInvoice struct {
	ID            string
	InvoiceNumber string
	ClientName    string
	TotalAmount   decimal.Decimal
	Status        InvoiceStatus
	AdminStatus   AdminStatus
	CreatedAt     time.Time
}

// InvoiceStats agregados del tablero administrativo.
type InvoiceStats struct {
	ByStatus      []StatusBucket
	ByAdminStatus []StatusBucket
	Recent        []RecentInvoice
	TotalInvoices int
	TotalAmount   decimal.Decimal
}

// CountAdmin devuelve el conteo del estado administrativo indicado.
func (s *InvoiceStats) CountAdmin(status AdminStatus) int {
	for _, b := range s.ByAdminStatus {
		if b.Status == string(status) {
			return b.Count
		}
	}
	return 0
}
