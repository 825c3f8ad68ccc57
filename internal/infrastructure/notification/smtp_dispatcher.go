package notification

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

var _ billing.Dispatcher = (*SMTPDispatcher)(nil)

// SMTPDispatcher envía la factura por correo con el RIDE adjunto.
type SMTPDispatcher struct {
	from   string
	issuer string
	sender gomail.Sender
	dialer *gomail.Dialer
	log    *logger.Logger
}

// NewSMTPDispatcher abre una conexión SMTP por envío (gomail.Dialer).
func NewSMTPDispatcher(cfg config.MailConfig, log *logger.Logger) *SMTPDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &SMTPDispatcher{
		from:   cfg.From,
		issuer: cfg.IssuerName,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		log:    log.Component("smtp_dispatcher"),
	}
}

// WithSender reemplaza el transporte SMTP (tests).
func (d *SMTPDispatcher) WithSender(s gomail.Sender) *SMTPDispatcher {
	d.sender = s
	return d
}

// SendInvoiceEmail implementa billing.Dispatcher.
func (d *SMTPDispatcher) SendInvoiceEmail(ctx context.Context, msg billing.InvoiceEmail) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := d.buildMessage(msg)
	if err != nil {
		return err
	}
	if d.sender != nil {
		err = gomail.Send(d.sender, m)
	} else {
		err = d.dialer.DialAndSend(m)
	}
	if err != nil {
		return fmt.Errorf("smtp: enviar a %s: %w", msg.ClientEmail, err)
	}
	d.log.Info().Str("invoice_id", msg.Invoice.ID).Str("to", msg.ClientEmail).
		Bool("pdf", len(msg.PDF) > 0).Msg("correo de factura enviado")
	return nil
}

func (d *SMTPDispatcher) buildMessage(msg billing.InvoiceEmail) (*gomail.Message, error) {
	body, err := renderBody(msg, d.issuer)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetAddressHeader("To", msg.ClientEmail, msg.ClientName)
	m.SetHeader("Subject", subject(msg, d.issuer))
	m.SetBody("text/html", body)
	if len(msg.PDF) > 0 {
		pdf := msg.PDF
		m.Attach(attachmentName(msg),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}),
		)
	}
	return m, nil
}
