package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado comercial de la factura.
type InvoiceStatus string

// Estados comerciales.
const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Valid indica si el estado pertenece al catálogo.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// AdminStatus estado de revisión administrativa, independiente del estado comercial.
type AdminStatus string

// Estados administrativos.
const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
	AdminExpired  AdminStatus = "expired"
)

// Valid indica si el estado administrativo pertenece al catálogo.
func (s AdminStatus) Valid() bool {
	switch s {
	case AdminPending, AdminApproved, AdminRejected, AdminExpired:
		return true
	}
	return false
}

// StockEffect efecto de inventario de una transición administrativa.
type StockEffect int

const (
	StockNone StockEffect = iota
	StockRelease
	StockReserve
)

// AdminTransitionEffect devuelve el efecto de inventario al pasar de from a to.
// Entrar en rejected desde cualquier otro estado libera; salir de rejected hacia approved reserva.
func AdminTransitionEffect(from, to AdminStatus) StockEffect {
	switch {
	case to == AdminRejected && from != AdminRejected:
		return StockRelease
	case from == AdminRejected && to == AdminApproved:
		return StockReserve
	default:
		return StockNone
	}
}

// CheckAdminTransition una factura rechazada solo sale de rejected hacia approved,
// que es la única salida que vuelve a reservar su inventario.
func CheckAdminTransition(from, to AdminStatus) error {
	if from == AdminRejected && to != AdminRejected && to != AdminApproved {
		return fmt.Errorf("una factura rechazada solo puede volver a approved, no a %s", to)
	}
	return nil
}

// Invoice cabecera de factura con sus dos ejes de estado.
type Invoice struct {
	ID              string
	InvoiceNumber   string // FAC-YYYYMMDD-NNNN
	Sequential      int64  // secuencial numérico usado en la clave de acceso
	ClientID        string
	IssueDate       time.Time
	DueDate         time.Time
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          InvoiceStatus
	AdminStatus     AdminStatus
	AdminNotes      string
	AdminReviewedBy string
	AdminReviewedAt *time.Time
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InvoiceTotals subtotal, impuesto y total calculados a partir de las líneas.
type InvoiceTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals suma las líneas y aplica la tarifa de impuesto a nivel de factura.
// Los montos se redondean a 2 decimales y Total es siempre Subtotal + Tax.
func ComputeTotals(items []*InvoiceItem, taxRate decimal.Decimal) InvoiceTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return InvoiceTotals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// FormatInvoiceNumber arma FAC-YYYYMMDD-NNNN para el n-ésimo documento del día.
func FormatInvoiceNumber(day time.Time, n int) string {
	return fmt.Sprintf("%s%04d", InvoiceNumberPrefix(day), n)
}

// InvoiceNumberPrefix prefijo FAC-YYYYMMDD- común a las facturas del día.
func InvoiceNumberPrefix(day time.Time) string {
	return "FAC-" + day.Format("20060102") + "-"
}

// InvoiceNumberSuffix consecutivo de un número del día indicado; false si es de otro día
// o el sufijo no es numérico.
func InvoiceNumberSuffix(number string, day time.Time) (int, bool) {
	rest, ok := strings.CutPrefix(number, InvoiceNumberPrefix(day))
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// StatusFromPayments estado comercial derivado del acumulado pagado (update / delete de pagos).
func StatusFromPayments(cumulative, total decimal.Decimal) InvoiceStatus {
	switch {
	case cumulative.GreaterThanOrEqual(total) && cumulative.IsPositive():
		return StatusPaid
	case cumulative.IsPositive():
		return StatusSent
	default:
		return StatusDraft
	}
}

// StatusAfterNewPayment estado comercial tras registrar un pago nuevo:
// paid si se cubre el total; sent si estaba en draft; sin cambio en otro caso.
func StatusAfterNewPayment(current InvoiceStatus, newCumulative, total decimal.Decimal) InvoiceStatus {
	if newCumulative.GreaterThanOrEqual(total) {
		return StatusPaid
	}
	if current == StatusDraft {
		return StatusSent
	}
	return current
}

// CanSend valida las precondiciones comerciales del envío.
func (i *Invoice) CanSend() error {
	if i.Status != StatusDraft {
		return fmt.Errorf("la factura está en estado %s, se requiere draft", i.Status)
	}
	if i.AdminStatus != AdminApproved {
		return fmt.Errorf("la factura no está aprobada (estado administrativo %s)", i.AdminStatus)
	}
	return nil
}
