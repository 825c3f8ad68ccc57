// Package notification despacha facturas al cliente: correo SMTP, cola AMQP o solo log.
package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
)

var invoiceBody = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html><body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
<p>Estimado(a) {{.ClientName}},</p>
<p>{{.Issuer}} le envía la factura <strong>{{.Number}}</strong> emitida el {{.IssueDate}}.</p>
<table cellpadding="4" style="border-collapse: collapse;">
<tr><td>Subtotal</td><td align="right">${{.Subtotal}}</td></tr>
<tr><td>IVA</td><td align="right">${{.Tax}}</td></tr>
<tr><td><strong>Total</strong></td><td align="right"><strong>${{.Total}}</strong></td></tr>
<tr><td>Vence</td><td align="right">{{.DueDate}}</td></tr>
</table>
{{if .HasPDF}}<p>Adjuntamos la representación impresa del comprobante electrónico.</p>{{end}}
<p>Saludos cordiales,<br>{{.Issuer}}</p>
</body></html>`))

type bodyData struct {
	ClientName string
	Issuer     string
	Number     string
	IssueDate  string
	DueDate    string
	Subtotal   string
	Tax        string
	Total      string
	HasPDF     bool
}

func subject(msg billing.InvoiceEmail, issuer string) string {
	return fmt.Sprintf("Factura %s - %s", msg.Invoice.InvoiceNumber, issuer)
}

func attachmentName(msg billing.InvoiceEmail) string {
	return fmt.Sprintf("factura-%s.pdf", msg.Invoice.InvoiceNumber)
}

func renderBody(msg billing.InvoiceEmail, issuer string) (string, error) {
	inv := msg.Invoice
	name := msg.ClientName
	if name == "" {
		name = "cliente"
	}
	var buf bytes.Buffer
	err := invoiceBody.Execute(&buf, bodyData{
		ClientName: name,
		Issuer:     issuer,
		Number:     inv.InvoiceNumber,
		IssueDate:  inv.IssueDate.Format("02/01/2006"),
		DueDate:    inv.DueDate.Format("02/01/2006"),
		Subtotal:   inv.Subtotal.StringFixed(2),
		Tax:        inv.TaxAmount.StringFixed(2),
		Total:      inv.TotalAmount.StringFixed(2),
		HasPDF:     len(msg.PDF) > 0,
	})
	if err != nil {
		return "", fmt.Errorf("renderizar cuerpo: %w", err)
	}
	return buf.String(), nil
}

func validate(msg billing.InvoiceEmail) error {
	if msg.Invoice == nil {
		return fmt.Errorf("notification: factura nil")
	}
	if msg.ClientEmail == "" {
		return fmt.Errorf("notification: correo del cliente vacío")
	}
	return nil
}
