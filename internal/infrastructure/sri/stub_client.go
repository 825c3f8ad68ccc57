package sri

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

var _ billing.FiscalAuthorizationClient = (*StubClient)(nil)

// StubClient autorización simulada para desarrollo: siempre AUTORIZADO.
// El número de autorización es la propia clave de acceso, como en el esquema offline.
type StubClient struct {
	environment string
	now         func() time.Time
}

// NewStubClient crea el canal simulado.
func NewStubClient(environment string) *StubClient {
	return &StubClient{environment: environment, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (c *StubClient) WithClock(now func() time.Time) *StubClient {
	c.now = now
	return c
}

// Submit respeta la cancelación del contexto pero no hace I/O.
func (c *StubClient) Submit(ctx context.Context, document []byte, accessKey string) (*domainsri.AuthorizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(document) == 0 {
		return nil, fmt.Errorf("stub: documento vacío")
	}
	at := c.now()
	return &domainsri.AuthorizationResult{
		Status:              entity.FiscalStatusAuthorized,
		AuthorizationNumber: accessKey,
		AuthorizationDate:   &at,
		Environment:         c.environment,
	}, nil
}
