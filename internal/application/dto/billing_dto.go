package dto

import "github.com/shopspring/decimal"

// DateLayout formato de fechas de negocio en requests y responses.
const DateLayout = "2006-01-02"

// CreateInvoiceRequest body para POST /api/invoices.
// IssueDate y DueDate son opcionales (YYYY-MM-DD); por defecto hoy y hoy + días de crédito.
type CreateInvoiceRequest struct {
	ClientID  string               `json:"client_id"`
	IssueDate string               `json:"issue_date,omitempty"`
	DueDate   string               `json:"due_date,omitempty"`
	Notes     string               `json:"notes,omitempty"`
	Items     []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest línea de factura. ProductID vacío = concepto sin inventario.
type InvoiceItemRequest struct {
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceResponse cabecera de factura con sus dos ejes de estado.
type InvoiceResponse struct {
	ID              string          `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	ClientID        string          `json:"client_id"`
	IssueDate       string          `json:"issue_date"`
	DueDate         string          `json:"due_date"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	AdminStatus     string          `json:"admin_status"`
	AdminNotes      string          `json:"admin_notes,omitempty"`
	AdminReviewedBy string          `json:"admin_reviewed_by,omitempty"`
	AdminReviewedAt string          `json:"admin_reviewed_at,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// InvoiceItemResponse línea de factura en respuestas.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// InvoiceDetailResponse factura con cliente, líneas y pagos para GET /api/invoices/:id.
type InvoiceDetailResponse struct {
	InvoiceResponse
	Client   *ClientResponse       `json:"client,omitempty"`
	Items    []InvoiceItemResponse `json:"items"`
	Payments []PaymentResponse     `json:"payments"`
	Summary  PaymentSummaryDTO     `json:"payment_summary"`
}

// ClientResponse datos del receptor en el detalle de la factura.
type ClientResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
}

// InvoiceListRequest query de GET /api/invoices.
type InvoiceListRequest struct {
	Status      string `query:"status"`
	AdminStatus string `query:"admin_status"`
	ClientID    string `query:"client_id"`
	PageRequest
}

// InvoiceListResponse página de facturas.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// UpdateAdminStatusRequest body para PUT /api/admin/invoices/:id/status.
type UpdateAdminStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateStatusRequest body para PUT /api/invoices/:id/status (override administrativo).
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
