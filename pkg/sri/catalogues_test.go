package sri_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

func TestIVAPercentageCode(t *testing.T) {
	assert.Equal(t, "2", sri.IVAPercentageCode(decimal.RequireFromString("0.12")))
	assert.Equal(t, "4", sri.IVAPercentageCode(decimal.RequireFromString("0.15")))
	assert.Equal(t, "0", sri.IVAPercentageCode(decimal.Zero))
	assert.Equal(t, "2", sri.IVAPercentageCode(decimal.RequireFromString("0.16")),
		"tarifa fuera de catálogo usa el código general")
}

func TestIdentificationType(t *testing.T) {
	assert.Equal(t, sri.IDTypeConsumerFinal, sri.IdentificationType(""))
	assert.Equal(t, sri.IDTypeConsumerFinal, sri.IdentificationType("9999999999999"))
	assert.Equal(t, sri.IDTypeRUC, sri.IdentificationType("1790011674001"))
	assert.Equal(t, sri.IDTypeCedula, sri.IdentificationType("1710034065"))
	assert.Equal(t, sri.IDTypePasaporte, sri.IdentificationType("AB123456"))
}

func TestPaymentMethodCode(t *testing.T) {
	assert.Equal(t, sri.PaymentSinSistemaFinanciero, sri.PaymentMethodCode("Cash"))
	assert.Equal(t, sri.PaymentTarjetaCredito, sri.PaymentMethodCode("credit_card"))
	assert.Equal(t, sri.PaymentOtrosSistemaFinanciero, sri.PaymentMethodCode("desconocido"))
}
