package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoices  *billing.InvoiceUseCase
	Payments  *billing.PaymentLedger
	Documents *billing.DocumentOrchestrator
	Dashboard *billing.DashboardUseCase
	JWTSecret string
	Logger    *logger.Logger
}

// Router registra las rutas de la API. Todo bajo /api requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Invoices
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.Payments, log)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id/send", invoiceHandler.Send)
	invoices.Put("/:id/status", invoiceHandler.OverrideStatus)
	invoices.Post("/:id/pay", invoiceHandler.Pay)
	invoices.Delete("/:id", invoiceHandler.Delete)

	// Payments
	payments := api.Group("/payments")
	paymentHandler := NewPaymentHandler(deps.Payments, log)
	payments.Get("/invoice/:invoiceId", paymentHandler.ListByInvoice)
	payments.Post("/", paymentHandler.Create)
	payments.Get("/:id", paymentHandler.GetByID)
	payments.Put("/:id", paymentHandler.Update)
	payments.Delete("/:id", paymentHandler.Delete)

	// Electronic documents (SRI)
	docs := api.Group("/electronic-documents")
	docHandler := NewElectronicDocumentHandler(deps.Documents, log)
	docs.Post("/generate/:invoiceId", docHandler.Generate)
	docs.Post("/resend/:invoiceId", docHandler.Resend)
	docs.Get("/invoice/:invoiceId", docHandler.GetByInvoice)
	docs.Get("/download/:invoiceId/xml", docHandler.DownloadXML)
	docs.Get("/", docHandler.List)

	// Admin
	admin := api.Group("/admin", RequireRole(entity.RoleAdmin))
	adminHandler := NewAdminHandler(deps.Invoices, deps.Dashboard, log)
	admin.Get("/invoices", adminHandler.ListInvoices)
	admin.Get("/invoices/:id", adminHandler.GetInvoice)
	admin.Put("/invoices/:id/status", adminHandler.UpdateAdminStatus)
	admin.Get("/dashboard", adminHandler.Dashboard)
}
