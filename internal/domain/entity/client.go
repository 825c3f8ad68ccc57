package entity

import "time"

// Client receptor de la factura (RUC, cédula o consumidor final).
type Client struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	TaxID     string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
