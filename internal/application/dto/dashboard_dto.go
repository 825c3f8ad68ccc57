package dto

import "github.com/shopspring/decimal"

// StatusBucketDTO conteo y monto por estado.
type StatusBucketDTO struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"total_amount"`
}

// RecentInvoiceDTO factura reciente del tablero.
type RecentInvoiceDTO struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	AdminStatus   string          `json:"admin_status"`
	CreatedAt     string          `json:"created_at"`
}

// DashboardTotalsDTO totales generales y conteos por estado administrativo.
type DashboardTotalsDTO struct {
	TotalInvoices int             `json:"total_invoices"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Pending       int             `json:"pending_count"`
	Approved      int             `json:"approved_count"`
	Rejected      int             `json:"rejected_count"`
	Expired       int             `json:"expired_count"`
}

// AdminDashboardDTO respuesta de GET /api/admin/dashboard.
type AdminDashboardDTO struct {
	ByAdminStatus  []StatusBucketDTO  `json:"admin_status_stats"`
	ByStatus       []StatusBucketDTO  `json:"status_stats"`
	RecentInvoices []RecentInvoiceDTO `json:"recent_invoices"`
	Totals         DashboardTotalsDTO `json:"totals"`
}
