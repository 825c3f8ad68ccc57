package postgres_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
)

func TestLoadMigrations_OrdenYContenido(t *testing.T) {
	migrations, err := postgres.LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "001_init", migrations[0].Version)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version, "las migraciones deben venir ordenadas")
	}

	schema := migrations[0].SQL
	for _, table := range []string{"invoices", "invoice_items", "payments", "fiscal_documents", "products", "clients", "audit_logs"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table, "falta la tabla %s", table)
	}
	assert.True(t, strings.Contains(schema, "invoice_id            UUID NOT NULL UNIQUE"),
		"un solo comprobante por factura")
	assert.Contains(t, schema, "CHECK (stock_quantity >= 0)")
}
