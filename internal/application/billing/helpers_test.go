package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) SendInvoiceEmail(ctx context.Context, msg billing.InvoiceEmail) error {
	return m.Called(ctx, msg).Error(0)
}

type mockAuthority struct{ mock.Mock }

func (m *mockAuthority) Submit(ctx context.Context, document []byte, accessKey string) (*sri.AuthorizationResult, error) {
	args := m.Called(ctx, document, accessKey)
	res, _ := args.Get(0).(*sri.AuthorizationResult)
	return res, args.Error(1)
}

// fakeBuilder XML mínimo y determinista con la clave embebida.
type fakeBuilder struct{}

func (fakeBuilder) Build(in sri.DocumentInput) ([]byte, error) {
	return []byte(`<factura id="comprobante"><claveAcceso>` + in.AccessKey + `</claveAcceso></factura>`), nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(xml []byte) ([]byte, error) {
	return append(append([]byte{}, xml...), []byte("<!-- firmado -->")...), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

var (
	testNow   = time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	admin     = entity.Principal{UserID: "u-admin", Email: "admin@example.com", Role: entity.RoleAdmin}
	user      = entity.Principal{UserID: "u-user", Email: "user@example.com", Role: entity.RoleUser}
	anonymous = entity.Principal{}
)

const (
	productA = "prod-a"
	productB = "prod-b"
	clientID = "cli-1"
)

type fixture struct {
	store      *memory.Store
	invoices   *billing.InvoiceUseCase
	payments   *billing.PaymentLedger
	documents  *billing.DocumentOrchestrator
	dashboard  *billing.DashboardUseCase
	dispatcher *mockDispatcher
	authority  *mockAuthority
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: productA, Code: "A-1", Name: "Teclado", StockQuantity: dec("10"), IsActive: true})
	store.AddProduct(entity.Product{ID: productB, Code: "B-1", Name: "Mouse", StockQuantity: dec("5"), IsActive: true})
	store.AddClient(entity.Client{
		ID: clientID, Name: "Comercial Andes S.A.", Email: "compras@andes.ec",
		TaxID: "1790011674001", Address: "Av. Amazonas", IsActive: true,
	})

	clock := func() time.Time { return testNow }
	f := &fixture{store: store, dispatcher: &mockDispatcher{}, authority: &mockAuthority{}}
	reads := store.Repos()
	f.invoices = billing.NewInvoiceUseCase(store, reads, billing.NewStockLedger(), f.dispatcher, nil, nil, nil,
		billing.InvoiceConfig{TaxRate: dec("0.16"), DueDays: 30}).WithClock(clock)
	f.payments = billing.NewPaymentLedger(store, reads, nil, nil, time.UTC).WithClock(clock)
	f.documents = billing.NewDocumentOrchestrator(store, reads, sri.NewAccessKeyGenerator(sri.LayoutOfficial),
		fakeBuilder{}, fakeSigner{}, f.authority, nil, nil, billing.DocumentConfig{
			Issuer: sri.Issuer{
				RUC: "1790011674001", RazonSocial: "Distribuidora Quito", DirMatriz: "Quito",
				Establishment: "001", EmissionPoint: "002", Environment: "1",
			},
			TaxRate: dec("0.16"),
		}).WithClock(clock)
	f.dashboard = billing.NewDashboardUseCase(reads.Invoices)
	return f
}

// createTwoLineInvoice 3 × 10.00 (producto A) + 1 × 5.00 (producto B).
func (f *fixture) createTwoLineInvoice(t *testing.T) *dto.InvoiceDetailResponse {
	t.Helper()
	inv, err := f.invoices.Create(context.Background(), user, dto.CreateInvoiceRequest{
		ClientID: clientID,
		Items: []dto.InvoiceItemRequest{
			{ProductID: productA, Quantity: dec("3"), UnitPrice: dec("10")},
			{ProductID: productB, Quantity: dec("1"), UnitPrice: dec("5")},
		},
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) approve(t *testing.T, invoiceID string) {
	t.Helper()
	_, err := f.invoices.UpdateAdminStatus(context.Background(), admin, invoiceID,
		dto.UpdateAdminStatusRequest{Status: string(entity.AdminApproved)})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID string) string {
	t.Helper()
	p, ok := f.store.Product(productID)
	require.True(t, ok)
	return p.StockQuantity.String()
}

func (f *fixture) status(t *testing.T, invoiceID string) entity.InvoiceStatus {
	t.Helper()
	inv, ok := f.store.Invoice(invoiceID)
	require.True(t, ok)
	return inv.Status
}

func pay(amount string) dto.PaymentRequest {
	return dto.PaymentRequest{Amount: dec(amount), PaymentDate: "2024-03-08", PaymentMethod: "transferencia"}
}

func authorized() *sri.AuthorizationResult {
	at := testNow.Add(time.Minute)
	return &sri.AuthorizationResult{
		Status: entity.FiscalStatusAuthorized, AuthorizationNumber: "AUT-1", AuthorizationDate: &at, Environment: "PRUEBAS",
	}
}

func notAuthorized() *sri.AuthorizationResult {
	return &sri.AuthorizationResult{
		Status: entity.FiscalStatusReturned,
		Messages: []sri.AuthorityMessage{
			{Identifier: "35", Message: "ARCHIVO NO CUMPLE ESTRUCTURA XML", Type: "ERROR"},
		},
	}
}
