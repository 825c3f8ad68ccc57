package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// ClientRepository lectura de clientes (administrados por otro módulo).
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Client, error)
}
