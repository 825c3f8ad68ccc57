package signer_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const rootXML = `<factura id="comprobante" version="1.1.0"><infoTributaria><ruc>1790011674001</ruc></infoTributaria></factura>`

const comprobante = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + rootXML

func selfSigned(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(20240307),
		Subject:      pkix.Name{CommonName: "Comercial Andes S.A.", Country: []string{"EC"}},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}
}

var firmaNow = func() time.Time {
	return time.Date(2024, time.March, 7, 10, 0, 0, 0, time.FixedZone("ECT", -5*3600))
}

// ──────────────────────────────────────────────────────────────────────────────
// Sign
// ──────────────────────────────────────────────────────────────────────────────

func TestSign_InyectaFirmaComoUltimoHijo(t *testing.T) {
	cert := selfSigned(t)
	s, err := signer.NewXAdESSigner(cert)
	require.NoError(t, err)
	s.WithClock(firmaNow)

	out, err := s.Sign([]byte(comprobante))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	children := doc.Root().ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "infoTributaria", children[0].Tag)
	sig := children[1]
	assert.Equal(t, "Signature", sig.Tag)
	assert.Equal(t, "ds", sig.Space)

	canonical, err := signer.Canonicalize([]byte(rootXML))
	require.NoError(t, err)
	sum := sha256.Sum256(canonical)
	want := base64.StdEncoding.EncodeToString(sum[:])

	ref := sig.FindElement(".//ds:Reference[@URI='#comprobante']/ds:DigestValue")
	require.NotNil(t, ref, "debe existir la referencia al comprobante")
	assert.Equal(t, want, ref.Text(), "el digest debe calcularse sobre el comprobante sin firma")

	certEl := sig.FindElement(".//ds:X509Certificate")
	require.NotNil(t, certEl)
	assert.Equal(t, base64.StdEncoding.EncodeToString(cert.Leaf.Raw), certEl.Text())

	signingTime := sig.FindElement(".//etsi:SigningTime")
	require.NotNil(t, signingTime)
	assert.Equal(t, "2024-03-07T10:00:00-05:00", signingTime.Text())

	value := sig.FindElement(".//ds:SignatureValue")
	require.NotNil(t, value)
	raw, err := base64.StdEncoding.DecodeString(value.Text())
	require.NoError(t, err)
	assert.Len(t, raw, 256, "firma RSA de 2048 bits")
}

func TestSign_RechazaDocumentoFirmado(t *testing.T) {
	s, err := signer.NewXAdESSigner(selfSigned(t))
	require.NoError(t, err)

	out, err := s.Sign([]byte(comprobante))
	require.NoError(t, err)

	_, err = s.Sign(out)
	assert.Error(t, err, "no se firma dos veces")
}

func TestSign_RaizSinIdComprobante(t *testing.T) {
	s, err := signer.NewXAdESSigner(selfSigned(t))
	require.NoError(t, err)

	_, err = s.Sign([]byte(`<factura version="1.1.0"></factura>`))
	assert.Error(t, err)

	_, err = s.Sign(nil)
	assert.Error(t, err)
}

func TestNewXAdESSigner_RequiereRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tpl := &x509.Certificate{SerialNumber: big.NewInt(1), NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)

	_, err = signer.NewXAdESSigner(tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key})
	assert.Error(t, err, "las llaves ECDSA no sirven para la firma del SRI")

	_, err = signer.NewXAdESSigner(tls.Certificate{})
	assert.Error(t, err)
}
