package dto

import "github.com/shopspring/decimal"

// AuthorityMessageDTO mensaje devuelto por el SRI.
type AuthorityMessageDTO struct {
	Identifier     string `json:"identificador"`
	Message        string `json:"mensaje"`
	AdditionalInfo string `json:"informacion_adicional,omitempty"`
	Type           string `json:"tipo"`
}

// FiscalDocumentResponse comprobante electrónico de una factura.
type FiscalDocumentResponse struct {
	ID                  string                `json:"id"`
	InvoiceID           string                `json:"invoice_id"`
	AccessKey           string                `json:"access_key"`
	Status              string                `json:"status"`
	Authorized          bool                  `json:"authorized"`
	AuthorizationNumber string                `json:"authorization_number,omitempty"`
	AuthorizationDate   string                `json:"authorization_date,omitempty"`
	Messages            []AuthorityMessageDTO `json:"messages,omitempty"`
	InvoiceStatus       string                `json:"invoice_status,omitempty"`
	CreatedAt           string                `json:"created_at"`
	UpdatedAt           string                `json:"updated_at"`
}

// FiscalDocumentListItemDTO fila del listado de comprobantes.
type FiscalDocumentListItemDTO struct {
	FiscalDocumentResponse
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ClientName    string          `json:"client_name"`
	ClientTaxID   string          `json:"client_tax_id,omitempty"`
}

// FiscalDocumentListRequest query de GET /api/electronic-documents.
type FiscalDocumentListRequest struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// FiscalDocumentListResponse página de comprobantes.
type FiscalDocumentListResponse struct {
	Documents  []FiscalDocumentListItemDTO `json:"documents"`
	Pagination PaginationDTO               `json:"pagination"`
}

// PaginationDTO paginación por número de página.
type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// XMLDownload contenido exacto del comprobante y nombre sugerido del archivo.
type XMLDownload struct {
	Filename string
	Content  []byte
}
