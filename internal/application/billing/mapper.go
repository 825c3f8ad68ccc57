package billing

import (
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dto.DateLayout)
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		IssueDate:       formatDate(inv.IssueDate),
		DueDate:         formatDate(inv.DueDate),
		Subtotal:        inv.Subtotal,
		TaxAmount:       inv.TaxAmount,
		TotalAmount:     inv.TotalAmount,
		Status:          string(inv.Status),
		AdminStatus:     string(inv.AdminStatus),
		AdminNotes:      inv.AdminNotes,
		AdminReviewedBy: inv.AdminReviewedBy,
		AdminReviewedAt: formatTimestamp(inv.AdminReviewedAt),
		Notes:           inv.Notes,
		CreatedBy:       inv.CreatedBy,
		CreatedAt:       formatTimestamp(&inv.CreatedAt),
		UpdatedAt:       formatTimestamp(&inv.UpdatedAt),
	}
}

func toItemResponses(items []*entity.InvoiceItem) []dto.InvoiceItemResponse {
	out := make([]dto.InvoiceItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.InvoiceItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return out
}

func toClientResponse(c *entity.Client) *dto.ClientResponse {
	if c == nil {
		return nil
	}
	return &dto.ClientResponse{
		ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, TaxID: c.TaxID, Address: c.Address,
	}
}

func toPaymentResponse(p *entity.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		PaymentDate:     formatDate(p.PaymentDate),
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		CreatedAt:       formatTimestamp(&p.CreatedAt),
	}
}

func toPaymentResponses(list []*entity.Payment) []dto.PaymentResponse {
	out := make([]dto.PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

func toSummaryDTO(s entity.PaymentSummary) dto.PaymentSummaryDTO {
	return dto.PaymentSummaryDTO{
		TotalAmount:     s.TotalAmount,
		TotalPaid:       s.TotalPaid,
		RemainingAmount: s.RemainingAmount,
		IsPaid:          s.IsPaid,
	}
}

func toFiscalDocumentResponse(doc *entity.FiscalDocument, messages []sri.AuthorityMessage) dto.FiscalDocumentResponse {
	resp := dto.FiscalDocumentResponse{
		ID:                  doc.ID,
		InvoiceID:           doc.InvoiceID,
		AccessKey:           doc.AccessKey,
		Status:              doc.Status,
		Authorized:          doc.IsAuthorized(),
		AuthorizationNumber: doc.AuthorizationNumber,
		AuthorizationDate:   formatTimestamp(doc.AuthorizationDate),
		CreatedAt:           formatTimestamp(&doc.CreatedAt),
		UpdatedAt:           formatTimestamp(&doc.UpdatedAt),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, dto.AuthorityMessageDTO{
			Identifier: m.Identifier, Message: m.Message, AdditionalInfo: m.AdditionalInfo, Type: m.Type,
		})
	}
	return resp
}
