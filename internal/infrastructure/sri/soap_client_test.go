package sri_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// Respuestas de ejemplo de los servicios offline
// ──────────────────────────────────────────────────────────────────────────────

const recepcionRecibida = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante><estado>RECIBIDA</estado><comprobantes/></RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse></soap:Body></soap:Envelope>`

const recepcionDevuelta = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante><estado>DEVUELTA</estado><comprobantes><comprobante>
<claveAcceso>` + testKey + `</claveAcceso><mensajes><mensaje>
<identificador>35</identificador><mensaje>ARCHIVO NO CUMPLE ESTRUCTURA XML</mensaje>
<informacionAdicional>cvc-complex-type</informacionAdicional><tipo>ERROR</tipo>
</mensaje></mensajes></comprobante></comprobantes></RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse></soap:Body></soap:Envelope>`

const autorizacionOK = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante><claveAccesoConsultada>` + testKey + `</claveAccesoConsultada>
<numeroComprobantes>1</numeroComprobantes><autorizaciones><autorizacion>
<estado>AUTORIZADO</estado><numeroAutorizacion>` + testKey + `</numeroAutorizacion>
<fechaAutorizacion>2024-03-07T10:05:00-05:00</fechaAutorizacion><ambiente>PRUEBAS</ambiente>
<comprobante><![CDATA[<factura/>]]></comprobante><mensajes/>
</autorizacion></autorizaciones></RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse></soap:Body></soap:Envelope>`

const autorizacionPendiente = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante><claveAccesoConsultada>` + testKey + `</claveAccesoConsultada>
<numeroComprobantes>0</numeroComprobantes><autorizaciones/></RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse></soap:Body></soap:Envelope>`

const soapFault = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<soap:Fault><faultcode>soap:Server</faultcode><faultstring>Servicio no disponible</faultstring></soap:Fault>
</soap:Body></soap:Envelope>`

// fakeSRI servidor con /recepcion y /autorizacion; cuenta las llamadas a cada uno.
type fakeSRI struct {
	reception     string
	authorization string
	status        int
	delay         time.Duration
	receptionHits atomic.Int32
	authHits      atomic.Int32
	lastBody      atomic.Value
}

func (f *fakeSRI) serve(t *testing.T) (*httptest.Server, *sri.SOAPClient) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.lastBody.Store(string(body))
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		status := f.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "text/xml")
		switch r.URL.Path {
		case "/recepcion":
			f.receptionHits.Add(1)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, f.reception)
		case "/autorizacion":
			f.authHits.Add(1)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, f.authorization)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	client := sri.NewSOAPClient(sri.SOAPConfig{
		Environment:      sri.EnvTest,
		ReceptionURL:     srv.URL + "/recepcion",
		AuthorizationURL: srv.URL + "/autorizacion",
		Timeout:          2 * time.Second,
	}, nil)
	return srv, client
}

// ──────────────────────────────────────────────────────────────────────────────
// Submit
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_RecibidaYAutorizada(t *testing.T) {
	f := &fakeSRI{reception: recepcionRecibida, authorization: autorizacionOK}
	_, client := f.serve(t)

	doc := []byte(`<factura id="comprobante"></factura>`)
	res, err := client.Submit(context.Background(), doc, testKey)
	require.NoError(t, err)

	assert.True(t, res.Authorized())
	assert.Equal(t, testKey, res.AuthorizationNumber)
	assert.Equal(t, "PRUEBAS", res.Environment)
	require.NotNil(t, res.AuthorizationDate)
	assert.Equal(t, time.Date(2024, time.March, 7, 15, 5, 0, 0, time.UTC), res.AuthorizationDate.UTC())

	assert.EqualValues(t, 1, f.receptionHits.Load())
	assert.EqualValues(t, 1, f.authHits.Load())
	assert.Contains(t, f.lastBody.Load().(string), "<claveAccesoComprobante>"+testKey+"</claveAccesoComprobante>")
}

func TestSubmit_EnviaXMLEnBase64(t *testing.T) {
	f := &fakeSRI{reception: recepcionDevuelta}
	_, client := f.serve(t)

	doc := []byte(`<factura id="comprobante"><ñ/></factura>`)
	_, err := client.Submit(context.Background(), doc, testKey)
	require.NoError(t, err)

	body := f.lastBody.Load().(string)
	assert.Contains(t, body, "validarComprobante")
	assert.Contains(t, body, "<xml>"+base64.StdEncoding.EncodeToString(doc)+"</xml>")
}

func TestSubmit_DevueltaNoConsultaAutorizacion(t *testing.T) {
	f := &fakeSRI{reception: recepcionDevuelta, authorization: autorizacionOK}
	_, client := f.serve(t)

	res, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.NoError(t, err, "un rechazo del SRI no es error de transporte")

	assert.Equal(t, entity.FiscalStatusReturned, res.Status)
	assert.False(t, res.Authorized())
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "35", res.Messages[0].Identifier)
	assert.Equal(t, "ERROR", res.Messages[0].Type)
	assert.EqualValues(t, 0, f.authHits.Load())
}

func TestSubmit_AutorizacionPendiente(t *testing.T) {
	f := &fakeSRI{reception: recepcionRecibida, authorization: autorizacionPendiente}
	_, client := f.serve(t)

	res, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.NoError(t, err)
	assert.Equal(t, entity.FiscalStatusReceived, res.Status)
	assert.Empty(t, res.AuthorizationNumber)
}

func TestSubmit_FaultEsError(t *testing.T) {
	f := &fakeSRI{reception: soapFault, status: http.StatusInternalServerError}
	_, client := f.serve(t)

	_, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Servicio no disponible")
}

func TestSubmit_RespuestaNoXML(t *testing.T) {
	f := &fakeSRI{reception: "bad gateway", status: http.StatusBadGateway}
	_, client := f.serve(t)

	_, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	assert.Error(t, err)
}

func TestSubmit_TimeoutAcotado(t *testing.T) {
	f := &fakeSRI{reception: recepcionRecibida, delay: 300 * time.Millisecond}
	srv, _ := f.serve(t)
	client := sri.NewSOAPClient(sri.SOAPConfig{
		ReceptionURL:     srv.URL + "/recepcion",
		AuthorizationURL: srv.URL + "/autorizacion",
		Timeout:          50 * time.Millisecond,
	}, nil)

	start := time.Now()
	_, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond, "no debe esperar la respuesta completa")
}

func TestSubmit_RespuestaLatin1(t *testing.T) {
	// "Número" codificado en ISO-8859-1 (ú = 0xFA).
	latin1 := strings.Replace(recepcionDevuelta, `encoding="UTF-8"`, `encoding="ISO-8859-1"`, 1)
	latin1 = strings.Replace(latin1, "ARCHIVO NO CUMPLE ESTRUCTURA XML", "N\xfamero de RUC inv\xe1lido", 1)
	f := &fakeSRI{reception: latin1}
	_, client := f.serve(t)

	res, err := client.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Número de RUC inválido", res.Messages[0].Message)
}

func TestSubmit_DocumentoVacio(t *testing.T) {
	f := &fakeSRI{reception: recepcionRecibida}
	_, client := f.serve(t)

	_, err := client.Submit(context.Background(), nil, testKey)
	assert.Error(t, err)
	assert.EqualValues(t, 0, f.receptionHits.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// StubClient
// ──────────────────────────────────────────────────────────────────────────────

func TestStubClient_SiempreAutoriza(t *testing.T) {
	at := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	stub := sri.NewStubClient("1").WithClock(func() time.Time { return at })

	res, err := stub.Submit(context.Background(), []byte(`<factura/>`), testKey)
	require.NoError(t, err)
	assert.True(t, res.Authorized())
	assert.Equal(t, testKey, res.AuthorizationNumber)
	require.NotNil(t, res.AuthorizationDate)
	assert.Equal(t, at, *res.AuthorizationDate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stub.Submit(ctx, []byte(`<factura/>`), testKey)
	assert.ErrorIs(t, err, context.Canceled)
}
