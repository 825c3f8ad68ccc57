package audit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/audit"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

type mockAuditRepo struct{ mock.Mock }

func (m *mockAuditRepo) Insert(ctx context.Context, e *entity.AuditEvent) error {
	return m.Called(ctx, e).Error(0)
}

func TestRecord_PersisteConFecha(t *testing.T) {
	repo := &mockAuditRepo{}
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(e *entity.AuditEvent) bool {
		return e.Action == entity.AuditInvoiceCreated && e.InvoiceID == "inv-1" && !e.CreatedAt.IsZero()
	})).Return(nil)

	audit.New(repo, nil).Record(context.Background(), entity.AuditEvent{
		UserID: "u-1", Action: entity.AuditInvoiceCreated, InvoiceID: "inv-1", Success: true,
	})
	repo.AssertExpectations(t)
}

func TestRecord_FalloDelRepositorioNoPropaga(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockAuditRepo{}
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("conexión perdida"))

	a := audit.New(repo, logger.New(logger.Config{Env: "production", Level: "info", Output: &buf}))
	require.NotPanics(t, func() {
		a.Record(context.Background(), entity.AuditEvent{Action: entity.AuditInvoiceSendFailed, InvoiceID: "inv-2"})
	})
	assert.Contains(t, buf.String(), "no se pudo persistir la auditoría")
	assert.Contains(t, buf.String(), "conexión perdida")
}

func TestRecord_ContextoCanceladoIgualPersiste(t *testing.T) {
	repo := &mockAuditRepo{}
	repo.On("Insert", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	audit.New(repo, nil).Record(ctx, entity.AuditEvent{Action: entity.AuditPaymentRecorded, Success: true})
	repo.AssertExpectations(t)
}

func TestRecord_SinRepositorio(t *testing.T) {
	assert.NotPanics(t, func() {
		audit.New(nil, nil).Record(context.Background(), entity.AuditEvent{Action: entity.AuditInvoiceDeleted})
	})
}
