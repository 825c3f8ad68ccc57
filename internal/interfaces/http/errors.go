package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// errorStatus categoría de dominio → status HTTP y código.
var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrOverpayment, fiber.StatusUnprocessableEntity, "OVERPAYMENT"},
	{domain.ErrExternalService, fiber.StatusBadGateway, "EXTERNAL_SERVICE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// errorWriter traduce errores de los casos de uso. Los de infraestructura salen como 500
// sin detalle y se registran.
type errorWriter struct {
	log *logger.Logger
}

func (w errorWriter) write(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: domain.MessageOf(err)})
		}
	}
	w.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
