package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// ElectronicDocumentHandler comprobantes electrónicos del SRI (protegido).
type ElectronicDocumentHandler struct {
	orch *billing.DocumentOrchestrator
	errs errorWriter
}

// NewElectronicDocumentHandler construye el handler.
func NewElectronicDocumentHandler(orch *billing.DocumentOrchestrator, log *logger.Logger) *ElectronicDocumentHandler {
	return &ElectronicDocumentHandler{orch: orch, errs: errorWriter{log: log}}
}

// Generate godoc
// @Summary      Generar, firmar y enviar el comprobante al SRI
// @Description  Requiere admin_status approved. Si el SRI autoriza, la factura pasa a sent.
// @Tags         electronic-documents
// @Security     Bearer
// @Produce      json
// @Param        invoiceId  path  string  true  "ID de la factura"
// @Success      201  {object}  dto.FiscalDocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/electronic-documents/generate/{invoiceId} [post]
func (h *ElectronicDocumentHandler) Generate(c *fiber.Ctx) error {
	out, err := h.orch.Generate(c.UserContext(), GetPrincipal(c), c.Params("invoiceId"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Resend godoc
// @Summary      Reenviar el comprobante no autorizado
// @Tags         electronic-documents
// @Security     Bearer
// @Produce      json
// @Param        invoiceId  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.FiscalDocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/electronic-documents/resend/{invoiceId} [post]
func (h *ElectronicDocumentHandler) Resend(c *fiber.Ctx) error {
	out, err := h.orch.Resend(c.UserContext(), GetPrincipal(c), c.Params("invoiceId"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// GetByInvoice godoc
// @Summary      Comprobante de una factura
// @Tags         electronic-documents
// @Security     Bearer
// @Produce      json
// @Param        invoiceId  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.FiscalDocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/electronic-documents/invoice/{invoiceId} [get]
func (h *ElectronicDocumentHandler) GetByInvoice(c *fiber.Ctx) error {
	out, err := h.orch.GetByInvoice(c.UserContext(), GetPrincipal(c), c.Params("invoiceId"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar comprobantes
// @Tags         electronic-documents
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "AUTORIZADO|NO AUTORIZADO|RECIBIDA|DEVUELTA"
// @Param        page    query  int     false  "Página"  default(1)
// @Param        limit   query  int     false  "Límite"  default(20)
// @Success      200  {object}  dto.FiscalDocumentListResponse
// @Router       /api/electronic-documents [get]
func (h *ElectronicDocumentHandler) List(c *fiber.Ctx) error {
	in := dto.FiscalDocumentListRequest{
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	out, err := h.orch.List(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// DownloadXML godoc
// @Summary      Descargar el XML firmado enviado al SRI
// @Tags         electronic-documents
// @Security     Bearer
// @Produce      xml
// @Param        invoiceId  path  string  true  "ID de la factura"
// @Success      200  {file}  file
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/electronic-documents/download/{invoiceId}/xml [get]
func (h *ElectronicDocumentHandler) DownloadXML(c *fiber.Ctx) error {
	out, err := h.orch.DownloadXML(c.UserContext(), GetPrincipal(c), c.Params("invoiceId"))
	if err != nil {
		return h.errs.write(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", out.Filename))
	return c.Send(out.Content)
}
