package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// AdminHandler revisión administrativa y tablero (rol admin).
type AdminHandler struct {
	invoices  *billing.InvoiceUseCase
	dashboard *billing.DashboardUseCase
	errs      errorWriter
}

// NewAdminHandler construye el handler.
func NewAdminHandler(invoices *billing.InvoiceUseCase, dashboard *billing.DashboardUseCase, log *logger.Logger) *AdminHandler {
	return &AdminHandler{invoices: invoices, dashboard: dashboard, errs: errorWriter{log: log}}
}

// ListInvoices godoc
// @Summary      Listar todas las facturas (admin)
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        status        query  string  false  "Estado comercial"
// @Param        admin_status  query  string  false  "Estado administrativo"
// @Param        client_id     query  string  false  "Cliente"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.InvoiceListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/admin/invoices [get]
func (h *AdminHandler) ListInvoices(c *fiber.Ctx) error {
	out, err := h.invoices.List(c.UserContext(), GetPrincipal(c), invoiceListRequest(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// GetInvoice godoc
// @Summary      Detalle de factura (admin)
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/invoices/{id} [get]
func (h *AdminHandler) GetInvoice(c *fiber.Ctx) error {
	out, err := h.invoices.Get(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// UpdateAdminStatus godoc
// @Summary      Aprobar, rechazar o vencer una factura
// @Description  Entrar en rejected libera el stock; salir de rejected a approved lo reserva de nuevo.
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la factura"
// @Param        body  body  dto.UpdateAdminStatusRequest  true  "Estado y notas"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/admin/invoices/{id}/status [put]
func (h *AdminHandler) UpdateAdminStatus(c *fiber.Ctx) error {
	var in dto.UpdateAdminStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.invoices.UpdateAdminStatus(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Dashboard godoc
// @Summary      Tablero administrativo
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AdminDashboardDTO
// @Router       /api/admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.dashboard.Stats(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}
