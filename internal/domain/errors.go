package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada uno identifica una categoría; los casos de uso devuelven *Error envolviendo la categoría
// para que el llamador pueda usar errors.Is(err, domain.ErrNotFound), etc.
var (
	ErrValidation        = errors.New("entrada inválida")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOverpayment       = errors.New("el pago excede el saldo pendiente")
	ErrExternalService   = errors.New("fallo en servicio externo")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// ErrInvalidInput se conserva como alias de ErrValidation.
var ErrInvalidInput = ErrValidation

// Error agrega contexto (operación, mensaje legible, causa) a una categoría de dominio.
type Error struct {
	Kind    error  // una de las variables Err* de este paquete
	Op      string // operación que falló, ej. "payments.record"
	Message string
	Err     error // causa subyacente (opcional)
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap expone tanto la categoría como la causa para errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Validation construye un error de validación de entrada.
func Validation(op, format string, args ...any) error {
	return newError(ErrValidation, op, format, args...)
}

// NotFound construye un error de recurso inexistente.
func NotFound(op, resource, id string) error {
	return newError(ErrNotFound, op, "%s %s no encontrado", resource, id)
}

// Conflict construye un error de estado incompatible con la operación.
func Conflict(op, format string, args ...any) error {
	return newError(ErrConflict, op, format, args...)
}

// InsufficientStock indica que la reserva del producto no pudo aplicarse.
func InsufficientStock(op, productID string) error {
	return newError(ErrInsufficientStock, op, "stock insuficiente para el producto %s", productID)
}

// Overpayment indica que el acumulado de pagos superaría el total de la factura.
func Overpayment(op, format string, args ...any) error {
	return newError(ErrOverpayment, op, format, args...)
}

// ExternalService envuelve la falla de un colaborador externo (correo, SRI).
func ExternalService(op, service string, cause error) error {
	return &Error{Kind: ErrExternalService, Op: op, Message: service + " no disponible", Err: cause}
}

// Unauthorized indica que la operación requiere un principal autenticado.
func Unauthorized(op string) error {
	return newError(ErrUnauthorized, op, "se requiere un usuario autenticado")
}

// Forbidden indica que el principal no tiene permiso para la operación.
func Forbidden(op, format string, args ...any) error {
	return newError(ErrForbidden, op, format, args...)
}

// kinds en orden de prioridad para KindOf.
var kinds = []error{
	ErrValidation, ErrNotFound, ErrConflict, ErrInsufficientStock,
	ErrOverpayment, ErrExternalService, ErrUnauthorized, ErrForbidden,
}

// KindOf devuelve la categoría de dominio de err, o nil si es un error de infraestructura.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// MessageOf devuelve el mensaje legible de un *Error, o el texto del error en otro caso.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
