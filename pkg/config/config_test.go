package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.16", cfg.Billing.TaxRate.String(), "la tarifa por defecto es 16 %")
	assert.Equal(t, "stub", cfg.SRI.Mode)
	assert.Equal(t, "1", cfg.SRI.EnvironmentCode(), "ambiente de pruebas por defecto")
	assert.Equal(t, 30, cfg.SRI.TimeoutSeconds)
	assert.Equal(t, "log", cfg.Mail.Driver)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("TAX_RATE", "0.12")
	t.Setenv("SRI_ENVIRONMENT", "production")
	t.Setenv("SRI_TIMEOUT_SECONDS", "5")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.12", cfg.Billing.TaxRate.String())
	assert.Equal(t, "2", cfg.SRI.EnvironmentCode())
	assert.Equal(t, 5, cfg.SRI.TimeoutSeconds)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_RechazaTarifaInvalida(t *testing.T) {
	t.Setenv("TAX_RATE", "1.5")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("TAX_RATE", "abc")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "fact", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/fact?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString(), "DATABASE_URL tiene prioridad")
}

func TestLoad_ValidaCatalogos(t *testing.T) {
	cases := map[string][2]string{
		"ambiente desconocido": {"SRI_ENVIRONMENT", "staging"},
		"modo desconocido":     {"SRI_MODE", "grpc"},
		"layout desconocido":   {"SRI_KEY_LAYOUT", "corto"},
		"driver desconocido":   {"MAIL_DRIVER", "sms"},
		"RUC corto":            {"SRI_RUC", "17900116"},
		"timeout cero":         {"SRI_TIMEOUT_SECONDS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ModoSOAPExigeRUC(t *testing.T) {
	t.Setenv("SRI_MODE", "soap")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("SRI_RUC", "1790011674001")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "soap", cfg.SRI.Mode)
}
