package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// PaymentHandler pagos de facturas (protegido).
type PaymentHandler struct {
	ledger *billing.PaymentLedger
	errs   errorWriter
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(ledger *billing.PaymentLedger, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{ledger: ledger, errs: errorWriter{log: log}}
}

// Create godoc
// @Summary      Registrar pago
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PaymentRequest  true  "Pago con invoice_id"
// @Success      201   {object}  dto.PaymentResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/payments [post]
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.InvoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id es requerido"})
	}
	out, err := h.ledger.Record(c.UserContext(), GetPrincipal(c), in.InvoiceID, in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListByInvoice godoc
// @Summary      Pagos de una factura con resumen de cobro
// @Tags         payments
// @Security     Bearer
// @Produce      json
// @Param        invoiceId  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.PaymentListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/payments/invoice/{invoiceId} [get]
func (h *PaymentHandler) ListByInvoice(c *fiber.Ctx) error {
	out, err := h.ledger.ListByInvoice(c.UserContext(), GetPrincipal(c), c.Params("invoiceId"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener pago
// @Tags         payments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pago"
// @Success      200  {object}  dto.PaymentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.ledger.Get(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Modificar pago
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del pago"
// @Param        body  body  dto.PaymentRequest  true  "Datos del pago"
// @Success      200   {object}  dto.PaymentResult
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/payments/{id} [put]
func (h *PaymentHandler) Update(c *fiber.Ctx) error {
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.Update(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar pago
// @Tags         payments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pago"
// @Success      200  {object}  dto.PaymentResult
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	out, err := h.ledger.Delete(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}
