package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.00", formatUSD(decimal.Zero))
	assert.Equal(t, "$40.60", formatUSD(decimal.RequireFromString("40.6")))
	assert.Equal(t, "$1,234.50", formatUSD(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "$1,000,000.00", formatUSD(decimal.NewFromInt(1000000)))
	assert.Equal(t, "-$12.35", formatUSD(decimal.RequireFromString("-12.345")))
}

func TestGenerate_ConYSinComprobante(t *testing.T) {
	g := NewRIDEGenerator(domainsri.Issuer{
		RUC: "1790011674001", RazonSocial: "Distribuidora Quito", Establishment: "001", EmissionPoint: "002", Environment: "1",
	}, decimal.RequireFromString("0.16"))

	inv := &entity.Invoice{
		InvoiceNumber: "FAC-20240307-0001",
		Sequential:    7,
		IssueDate:     time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC),
		Subtotal:      decimal.RequireFromString("35.00"),
		TaxAmount:     decimal.RequireFromString("5.60"),
		TotalAmount:   decimal.RequireFromString("40.60"),
	}
	items := []*entity.InvoiceItem{
		{ProductID: "prod-a", Description: "Teclado", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(10)},
		{Description: "Instalación", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5)},
	}

	draft, err := g.Generate(inv, items, nil, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(draft, []byte("%PDF")), "debe ser un PDF")

	at := time.Date(2024, time.March, 7, 10, 5, 0, 0, time.UTC)
	doc := &entity.FiscalDocument{
		AccessKey:           "0703202401179001167400120010020000000070000000710",
		Status:              entity.FiscalStatusAuthorized,
		AuthorizationNumber: "0703202401179001167400120010020000000070000000710",
		AuthorizationDate:   &at,
	}
	authorized, err := g.Generate(inv, items, &entity.Client{Name: "Comercial Andes S.A.", TaxID: "1790011674001"}, doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(authorized, []byte("%PDF")))

	_, err = g.Generate(nil, items, nil, nil)
	assert.Error(t, err)
}
