package notification_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/notification"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

var fakePDF = []byte("%PDF-1.4 prueba")

func invoiceEmail(pdf []byte) billing.InvoiceEmail {
	return billing.InvoiceEmail{
		Invoice: &entity.Invoice{
			ID:            "inv-1",
			InvoiceNumber: "FAC-20240307-0001",
			IssueDate:     time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC),
			DueDate:       time.Date(2024, time.April, 6, 0, 0, 0, 0, time.UTC),
			Subtotal:      decimal.RequireFromString("35"),
			TaxAmount:     decimal.RequireFromString("5.6"),
			TotalAmount:   decimal.RequireFromString("40.6"),
		},
		ClientEmail: "compras@andes.ec",
		ClientName:  "Comercial Andes",
		PDF:         pdf,
	}
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

// ──────────────────────────────────────────────────────────────────────────────
// SMTP
// ──────────────────────────────────────────────────────────────────────────────

func TestSMTPDispatcher_AdjuntaRIDE(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		raw     bytes.Buffer
	)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		gotFrom, gotTo = from, to
		_, err := msg.WriteTo(&raw)
		return err
	})
	d := notification.NewSMTPDispatcher(config.MailConfig{From: "facturas@quito.ec", IssuerName: "Distribuidora Quito"}, nil).
		WithSender(sender)

	require.NoError(t, d.SendInvoiceEmail(context.Background(), invoiceEmail(fakePDF)))

	assert.Equal(t, "facturas@quito.ec", gotFrom)
	assert.Equal(t, []string{"compras@andes.ec"}, gotTo)
	out := raw.String()
	assert.Contains(t, out, "Subject: Factura FAC-20240307-0001 - Distribuidora Quito")
	assert.Contains(t, out, `filename="factura-FAC-20240307-0001.pdf"`)
	assert.Contains(t, out, "application/pdf")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString(fakePDF))
}

func TestSMTPDispatcher_SinPDFNoAdjunta(t *testing.T) {
	var raw bytes.Buffer
	sender := gomail.SendFunc(func(_ string, _ []string, msg io.WriterTo) error {
		_, err := msg.WriteTo(&raw)
		return err
	})
	d := notification.NewSMTPDispatcher(config.MailConfig{From: "facturas@quito.ec", IssuerName: "Quito"}, nil).WithSender(sender)

	require.NoError(t, d.SendInvoiceEmail(context.Background(), invoiceEmail(nil)))
	assert.NotContains(t, raw.String(), "attachment")
}

func TestSMTPDispatcher_ErrorDeTransporte(t *testing.T) {
	sender := gomail.SendFunc(func(string, []string, io.WriterTo) error { return errors.New("conexión rechazada") })
	d := notification.NewSMTPDispatcher(config.MailConfig{From: "f@q.ec"}, nil).WithSender(sender)

	err := d.SendInvoiceEmail(context.Background(), invoiceEmail(fakePDF))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conexión rechazada")
}

func TestSMTPDispatcher_SinCorreo(t *testing.T) {
	called := false
	sender := gomail.SendFunc(func(string, []string, io.WriterTo) error { called = true; return nil })
	d := notification.NewSMTPDispatcher(config.MailConfig{From: "f@q.ec"}, nil).WithSender(sender)

	msg := invoiceEmail(nil)
	msg.ClientEmail = ""
	assert.Error(t, d.SendInvoiceEmail(context.Background(), msg))
	assert.False(t, called, "no debe intentar el envío")
}

// ──────────────────────────────────────────────────────────────────────────────
// AMQP
// ──────────────────────────────────────────────────────────────────────────────

func TestAMQPDispatcher_PublicaPersistente(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishWithContext", mock.Anything, "", "invoice.dispatch", false, false, mock.Anything).Return(nil)
	d := notification.NewAMQPDispatcher(pub, "invoice.dispatch", "Distribuidora Quito", nil)

	require.NoError(t, d.SendInvoiceEmail(context.Background(), invoiceEmail(fakePDF)))
	pub.AssertExpectations(t)

	published := pub.Calls[0].Arguments.Get(5).(amqp.Publishing)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, "inv-1", published.MessageId)

	var body notification.DispatchMessage
	require.NoError(t, json.Unmarshal(published.Body, &body))
	assert.Equal(t, "compras@andes.ec", body.To)
	assert.Equal(t, "Factura FAC-20240307-0001 - Distribuidora Quito", body.Subject)
	assert.Equal(t, "factura-FAC-20240307-0001.pdf", body.Attachment)
	assert.Equal(t, fakePDF, body.PDF)
	assert.True(t, body.Total.Equal(decimal.RequireFromString("40.60")))
	assert.Contains(t, body.HTMLBody, "40.60")
}

func TestAMQPDispatcher_ErrorAlPublicar(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(amqp.ErrClosed)
	d := notification.NewAMQPDispatcher(pub, "q", "Quito", nil)

	err := d.SendInvoiceEmail(context.Background(), invoiceEmail(nil))
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Log
// ──────────────────────────────────────────────────────────────────────────────

func TestLogDispatcher_RegistraDespacho(t *testing.T) {
	var buf bytes.Buffer
	d := notification.NewLogDispatcher("Quito", logger.New(logger.Config{Env: "production", Level: "info", Output: &buf}))

	require.NoError(t, d.SendInvoiceEmail(context.Background(), invoiceEmail(fakePDF)))
	assert.Contains(t, buf.String(), "compras@andes.ec")
	assert.Contains(t, buf.String(), `"component":"log_dispatcher"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.SendInvoiceEmail(ctx, invoiceEmail(nil)), context.Canceled)
}
