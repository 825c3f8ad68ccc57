package sri

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// EnvTest ambiente de pruebas (celcer).
	EnvTest = "test"
	// EnvProduction ambiente de producción (cel).
	EnvProduction = "production"

	receptionURLTest     = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	receptionURLProd     = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	maxResponseSize = 4 << 20

	defaultTimeout = 30 * time.Second
)

// SOAPConfig endpoints y límites del cliente. Las URL vacías se toman del ambiente.
type SOAPConfig struct {
	Environment      string
	ReceptionURL     string
	AuthorizationURL string
	Timeout          time.Duration
}

var _ billing.FiscalAuthorizationClient = (*SOAPClient)(nil)

// SOAPClient envía comprobantes a los servicios web offline del SRI:
// validarComprobante (recepción) y luego autorizacionComprobante.
// Un rechazo del SRI (DEVUELTA, NO AUTORIZADO) no es error: viaja en el resultado.
type SOAPClient struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
	environment      string
	log              *logger.Logger
}

// NewSOAPClient construye el cliente. El timeout acota cada llamada HTTP.
func NewSOAPClient(cfg SOAPConfig, log *logger.Logger) *SOAPClient {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reception, authorization := receptionURLTest, authorizationURLTest
	if cfg.Environment == EnvProduction {
		reception, authorization = receptionURLProd, authorizationURLProd
	}
	if cfg.ReceptionURL != "" {
		reception = cfg.ReceptionURL
	}
	if cfg.AuthorizationURL != "" {
		authorization = cfg.AuthorizationURL
	}
	return &SOAPClient{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     reception,
		authorizationURL: authorization,
		environment:      cfg.Environment,
		log:              log.Component("sri_soap"),
	}
}

// Submit recepción y, si el SRI la acepta, consulta de autorización. Sin reintentos.
func (c *SOAPClient) Submit(ctx context.Context, document []byte, accessKey string) (*domainsri.AuthorizationResult, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("soap: documento vacío")
	}

	reception, err := c.validate(ctx, document)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("access_key", accessKey).Str("estado", reception.Status).Msg("recepción SRI")
	if reception.Status != entity.FiscalStatusReceived {
		return reception, nil
	}

	result, err := c.authorize(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("access_key", accessKey).Str("estado", result.Status).Msg("autorización SRI")
	return result, nil
}

// ── Recepción ─────────────────────────────────────────────────────────────────

func (c *SOAPClient) validate(ctx context.Context, document []byte) (*domainsri.AuthorizationResult, error) {
	body := `<ec:validarComprobante xmlns:ec="` + nsRecepcion + `"><xml>` +
		base64.StdEncoding.EncodeToString(document) + `</xml></ec:validarComprobante>`
	doc, err := c.call(ctx, c.receptionURL, body)
	if err != nil {
		return nil, err
	}

	resp := doc.FindElement("//RespuestaRecepcionComprobante")
	if resp == nil {
		return nil, fmt.Errorf("soap: respuesta de recepción sin RespuestaRecepcionComprobante")
	}
	result := &domainsri.AuthorizationResult{
		Status:      childText(resp, "estado"),
		Environment: c.environment,
	}
	for _, m := range resp.FindElements(".//comprobante/mensajes/mensaje") {
		result.Messages = append(result.Messages, parseMessage(m))
	}
	if result.Status == "" {
		return nil, fmt.Errorf("soap: respuesta de recepción sin estado")
	}
	return result, nil
}

// ── Autorización ──────────────────────────────────────────────────────────────

func (c *SOAPClient) authorize(ctx context.Context, accessKey string) (*domainsri.AuthorizationResult, error) {
	body := `<ec:autorizacionComprobante xmlns:ec="` + nsAutorizacion + `"><claveAccesoComprobante>` +
		accessKey + `</claveAccesoComprobante></ec:autorizacionComprobante>`
	doc, err := c.call(ctx, c.authorizationURL, body)
	if err != nil {
		return nil, err
	}

	resp := doc.FindElement("//RespuestaAutorizacionComprobante")
	if resp == nil {
		return nil, fmt.Errorf("soap: respuesta de autorización sin RespuestaAutorizacionComprobante")
	}
	auth := resp.FindElement("./autorizaciones/autorizacion")
	if auth == nil {
		// Recibida pero aún en procesamiento: se conserva el estado de recepción.
		return &domainsri.AuthorizationResult{Status: entity.FiscalStatusReceived, Environment: c.environment}, nil
	}

	result := &domainsri.AuthorizationResult{
		Status:              childText(auth, "estado"),
		AuthorizationNumber: childText(auth, "numeroAutorizacion"),
		Environment:         c.environment,
	}
	if amb := childText(auth, "ambiente"); amb != "" {
		result.Environment = amb
	}
	if t, ok := parseSRITime(childText(auth, "fechaAutorizacion")); ok {
		result.AuthorizationDate = &t
	}
	for _, m := range auth.FindElements("./mensajes/mensaje") {
		result.Messages = append(result.Messages, parseMessage(m))
	}
	if result.Status == "" {
		return nil, fmt.Errorf("soap: autorización sin estado")
	}
	return result, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (c *SOAPClient) call(ctx context.Context, url, body string) (*etree.Document, error) {
	envelope := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soapenv:Envelope xmlns:soapenv="` + soapNS + `"><soapenv:Header/><soapenv:Body>` +
		body + `</soapenv:Body></soapenv:Envelope>`

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("soap: respuesta no es XML (HTTP %d): %w", resp.StatusCode, err)
	}
	if fault := doc.FindElement("//Fault"); fault != nil {
		return nil, fmt.Errorf("soap: fault [%s]: %s", childText(fault, "faultcode"), childText(fault, "faultstring"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soap: HTTP %d", resp.StatusCode)
	}
	return doc, nil
}

// charsetReader el SRI responde en UTF-8, pero algunos nodos intermedios declaran ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(label) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	default:
		return input, nil
	}
}

func childText(el *etree.Element, tag string) string {
	if ch := el.SelectElement(tag); ch != nil {
		return strings.TrimSpace(ch.Text())
	}
	return ""
}

func parseMessage(m *etree.Element) domainsri.AuthorityMessage {
	return domainsri.AuthorityMessage{
		Identifier:     childText(m, "identificador"),
		Message:        childText(m, "mensaje"),
		AdditionalInfo: childText(m, "informacionAdicional"),
		Type:           childText(m, "tipo"),
	}
}

var sriTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05.000-07:00", "02/01/2006 15:04:05"}

func parseSRITime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sriTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
