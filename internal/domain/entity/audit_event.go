package entity

import (
	"encoding/json"
	"time"
)

// Acciones auditadas del ciclo de vida.
const (
	AuditInvoiceCreated      = "invoice.created"
	AuditInvoiceSent         = "invoice.sent"
	AuditInvoiceSendFailed   = "invoice.send_failed"
	AuditInvoiceDeleted      = "invoice.deleted"
	AuditInvoiceStatus       = "invoice.status_override"
	AuditAdminStatus         = "invoice.admin_status"
	AuditPaymentRecorded     = "payment.recorded"
	AuditPaymentUpdated      = "payment.updated"
	AuditPaymentDeleted      = "payment.deleted"
	AuditDocumentGenerated   = "fiscal_document.generated"
	AuditDocumentResent      = "fiscal_document.resent"
	AuditDocumentSubmitError = "fiscal_document.submit_error"
)

// AuditEvent registro best-effort de una acción sobre una factura.
type AuditEvent struct {
	ID        string
	UserID    string
	Action    string
	InvoiceID string
	Success   bool
	Message   string
	Metadata  json.RawMessage
	CreatedAt time.Time
}
