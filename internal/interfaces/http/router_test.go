package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/notification"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	apphttp "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturacion-sri/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// App completa sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "secreto-api"
	testIssuer    = "facturacion-sri-test"
	testExpMin    = 60
)

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
	admin string
	user  string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: "prod-a", Code: "A-1", Name: "Teclado", StockQuantity: decimal.NewFromInt(10), IsActive: true})
	store.AddClient(entity.Client{
		ID: "cli-1", Name: "Comercial Andes S.A.", Email: "compras@andes.ec", TaxID: "1790011674001", IsActive: true,
	})

	rate := decimal.RequireFromString("0.16")
	issuer := domainsri.Issuer{
		RUC: "1790011674001", RazonSocial: "Distribuidora Quito", DirMatriz: "Quito",
		Establishment: "001", EmissionPoint: "002", Environment: "1",
	}
	reads := store.Repos()
	invoices := billing.NewInvoiceUseCase(store, reads, billing.NewStockLedger(),
		notification.NewLogDispatcher("Distribuidora Quito", nil), nil, nil, nil,
		billing.InvoiceConfig{TaxRate: rate, DueDays: 30})
	payments := billing.NewPaymentLedger(store, reads, nil, nil, time.UTC)
	documents := billing.NewDocumentOrchestrator(store, reads, domainsri.NewAccessKeyGenerator(domainsri.LayoutOfficial),
		sri.NewXMLBuilder(), sri.NewContentHashSigner(), sri.NewStubClient(issuer.Environment), nil, nil,
		billing.DocumentConfig{Issuer: issuer, TaxRate: rate})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Invoices:  invoices,
		Payments:  payments,
		Documents: documents,
		Dashboard: billing.NewDashboardUseCase(reads.Invoices),
		JWTSecret: testJWTSecret,
	})

	adminTok, err := pkgjwt.Generate(testJWTSecret, "u-admin", "admin@quito.ec", entity.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)
	userTok, err := pkgjwt.Generate(testJWTSecret, "u-user", "cajero@quito.ec", entity.RoleUser, testIssuer, testExpMin)
	require.NoError(t, err)
	return &apiFixture{app: app, store: store, admin: "Bearer " + adminTok, user: "Bearer " + userTok}
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m), string(raw))
	return m
}

func (f *apiFixture) createInvoice(t *testing.T, qty string) string {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/api/invoices", f.user,
		`{"client_id":"cli-1","items":[{"product_id":"prod-a","quantity":"`+qty+`","unit_price":"10"},{"description":"Instalación","quantity":"1","unit_price":"5"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	id, _ := decode(t, raw)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujos
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_CicloCompletoHastaPagada(t *testing.T) {
	f := newAPI(t)
	id := f.createInvoice(t, "3")

	resp, raw := f.do(t, http.MethodGet, "/api/invoices/"+id, f.user, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode(t, raw)
	assert.Equal(t, "40.6", detail["total_amount"])
	assert.Equal(t, "draft", detail["status"])
	assert.Equal(t, "pending", detail["admin_status"])

	// Sin aprobación no hay comprobante.
	resp, raw = f.do(t, http.MethodPost, "/api/electronic-documents/generate/"+id, f.user, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))

	resp, _ = f.do(t, http.MethodPut, "/api/admin/invoices/"+id+"/status", f.admin, `{"status":"approved","notes":"ok"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = f.do(t, http.MethodPost, "/api/electronic-documents/generate/"+id, f.user, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	doc := decode(t, raw)
	assert.Equal(t, entity.FiscalStatusAuthorized, doc["status"])
	assert.Equal(t, true, doc["authorized"])
	accessKey, _ := doc["access_key"].(string)
	assert.Len(t, accessKey, 49)

	inv, ok := f.store.Invoice(id)
	require.True(t, ok)
	assert.Equal(t, entity.StatusSent, inv.Status, "la autorización deja la factura en sent")

	resp, raw = f.do(t, http.MethodGet, "/api/electronic-documents/download/"+id+"/xml", f.user, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="factura-`+accessKey+`.xml"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, string(raw), "<claveAcceso>"+accessKey+"</claveAcceso>")

	resp, raw = f.do(t, http.MethodPost, "/api/invoices/"+id+"/pay", f.user,
		`{"amount":"50","payment_date":"2024-03-08","payment_method":"transferencia"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "OVERPAYMENT", decode(t, raw)["code"])

	resp, raw = f.do(t, http.MethodPost, "/api/payments", f.user,
		`{"invoice_id":"`+id+`","amount":"40.60","payment_date":"2024-03-08","payment_method":"transferencia"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Equal(t, "paid", decode(t, raw)["invoice_status"])

	resp, raw = f.do(t, http.MethodGet, "/api/payments/invoice/"+id, f.user, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary, _ := decode(t, raw)["summary"].(map[string]any)
	assert.Equal(t, true, summary["is_paid"])
}

func TestAPI_EnvioPorCorreo(t *testing.T) {
	f := newAPI(t)
	id := f.createInvoice(t, "1")

	resp, raw := f.do(t, http.MethodPut, "/api/invoices/"+id+"/send", f.user, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "pendiente de aprobación: %s", raw)

	resp, _ = f.do(t, http.MethodPut, "/api/admin/invoices/"+id+"/status", f.admin, `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = f.do(t, http.MethodPut, "/api/invoices/"+id+"/send", f.user, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "sent", decode(t, raw)["status"])
}

func TestAPI_StockInsuficienteEs409(t *testing.T) {
	f := newAPI(t)
	resp, raw := f.do(t, http.MethodPost, "/api/invoices", f.user,
		`{"client_id":"cli-1","items":[{"product_id":"prod-a","quantity":"11","unit_price":"10"}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode(t, raw)["code"])

	p, ok := f.store.Product("prod-a")
	require.True(t, ok)
	assert.Equal(t, "10", p.StockQuantity.String(), "sin reserva parcial")
}

func TestAPI_ErroresDeEntrada(t *testing.T) {
	f := newAPI(t)

	resp, raw := f.do(t, http.MethodGet, "/api/invoices/no-existe", f.user, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode(t, raw)["code"])

	resp, raw = f.do(t, http.MethodPost, "/api/invoices", f.user, `{"client_id":"cli-1","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode(t, raw)["code"])

	resp, raw = f.do(t, http.MethodPost, "/api/payments", f.user, `{"amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode(t, raw)["code"])

	resp, _ = f.do(t, http.MethodGet, "/api/invoices", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_RutasAdminSoloAdmin(t *testing.T) {
	f := newAPI(t)
	id := f.createInvoice(t, "2")

	resp, raw := f.do(t, http.MethodGet, "/api/admin/dashboard", f.user, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decode(t, raw)["code"])

	resp, raw = f.do(t, http.MethodPut, "/api/invoices/"+id+"/status", f.user, `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "el override también exige admin: %s", raw)

	resp, raw = f.do(t, http.MethodGet, "/api/admin/dashboard", f.admin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = f.do(t, http.MethodGet, "/api/admin/invoices?admin_status=pending", f.admin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := decode(t, raw)["items"].([]any)
	assert.Len(t, items, 1)
}

func TestAPI_EliminarBorradorLiberaStock(t *testing.T) {
	f := newAPI(t)
	id := f.createInvoice(t, "4")

	p, _ := f.store.Product("prod-a")
	assert.Equal(t, "6", p.StockQuantity.String())

	resp, _ := f.do(t, http.MethodDelete, "/api/invoices/"+id, f.user, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	p, _ = f.store.Product("prod-a")
	assert.Equal(t, "10", p.StockQuantity.String())

	resp, _ = f.do(t, http.MethodGet, "/api/invoices/"+id, f.user, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
