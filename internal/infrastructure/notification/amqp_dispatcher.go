package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// Publisher canal AMQP mínimo que usa el despachador (*amqp.Channel lo cumple).
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ billing.Dispatcher = (*AMQPDispatcher)(nil)

// AMQPDispatcher publica el despacho en una cola; un worker externo envía el correo.
type AMQPDispatcher struct {
	pub    Publisher
	queue  string
	issuer string
	now    func() time.Time
	log    *logger.Logger
}

// DispatchMessage cuerpo JSON publicado en la cola.
type DispatchMessage struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	To            string          `json:"to"`
	ToName        string          `json:"to_name,omitempty"`
	Subject       string          `json:"subject"`
	HTMLBody      string          `json:"html_body"`
	Total         decimal.Decimal `json:"total"`
	Attachment    string          `json:"attachment_name,omitempty"`
	PDF           []byte          `json:"pdf,omitempty"` // base64 en JSON
}

// NewAMQPDispatcher usa un canal ya abierto.
func NewAMQPDispatcher(pub Publisher, queue, issuer string, log *logger.Logger) *AMQPDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &AMQPDispatcher{pub: pub, queue: queue, issuer: issuer, now: time.Now, log: log.Component("amqp_dispatcher")}
}

// SendInvoiceEmail implementa billing.Dispatcher.
func (d *AMQPDispatcher) SendInvoiceEmail(ctx context.Context, msg billing.InvoiceEmail) error {
	if err := validate(msg); err != nil {
		return err
	}
	body, err := renderBody(msg, d.issuer)
	if err != nil {
		return err
	}
	out := DispatchMessage{
		InvoiceID:     msg.Invoice.ID,
		InvoiceNumber: msg.Invoice.InvoiceNumber,
		To:            msg.ClientEmail,
		ToName:        msg.ClientName,
		Subject:       subject(msg, d.issuer),
		HTMLBody:      body,
		Total:         msg.Invoice.TotalAmount,
		PDF:           msg.PDF,
	}
	if len(msg.PDF) > 0 {
		out.Attachment = attachmentName(msg)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("amqp: serializar mensaje: %w", err)
	}

	err = d.pub.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Invoice.ID,
		Timestamp:    d.now(),
		Type:         "invoice.dispatch",
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp: publicar en %s: %w", d.queue, err)
	}
	d.log.Info().Str("invoice_id", msg.Invoice.ID).Str("queue", d.queue).Msg("despacho de factura encolado")
	return nil
}

// Connection conexión y canal con la cola declarada (durable).
type Connection struct {
	conn *amqp.Connection
	Chn  *amqp.Channel
}

// Dial abre la conexión, un canal y declara la cola.
func Dial(url, queue string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: conectar: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: abrir canal: %w", err)
	}
	if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = chn.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declarar cola %s: %w", queue, err)
	}
	return &Connection{conn: conn, Chn: chn}, nil
}

// Close cierra canal y conexión.
func (c *Connection) Close() error {
	if err := c.Chn.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}
