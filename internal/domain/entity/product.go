package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo, administrado fuera de este servicio.
// Aquí solo se ajusta StockQuantity con decrementos condicionados e incrementos atómicos.
type Product struct {
	ID            string
	Code          string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity decimal.Decimal // nunca negativo
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
