// Firma XAdES-BES enveloped para comprobantes electrónicos del SRI.
// Inyecta <ds:Signature> como último hijo de la raíz del comprobante.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ pkgsri.Signer = (*XAdESSigner)(nil)

// XAdESSigner firma con el certificado del emisor.
type XAdESSigner struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
	now  func() time.Time
}

// NewXAdESSigner valida que el certificado traiga llave privada RSA.
func NewXAdESSigner(cert tls.Certificate) (*XAdESSigner, error) {
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("signer: certificado vacío")
	}
	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signer: el certificado debe incluir llave privada RSA")
	}
	leaf := cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("signer: parsear certificado: %w", err)
		}
		leaf = parsed
	}
	return &XAdESSigner{cert: leaf, key: key, now: time.Now}, nil
}

// WithClock fija la hora de firma (tests).
func (s *XAdESSigner) WithClock(now func() time.Time) *XAdESSigner {
	s.now = now
	return s
}

// Sign implementa pkg/sri.Signer.
func (s *XAdESSigner) Sign(xmlBytes []byte) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("signer: XML vacío")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("signer: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("signer: documento sin raíz")
	}
	if root.SelectAttrValue("id", "") != strings.TrimPrefix(ComprobanteRef, "#") {
		return nil, fmt.Errorf("signer: la raíz debe tener id=%q", strings.TrimPrefix(ComprobanteRef, "#"))
	}
	if root.FindElement("./ds:Signature") != nil || root.FindElement("./Signature") != nil {
		return nil, fmt.Errorf("signer: el documento ya está firmado")
	}

	// 1) Digest del comprobante (enveloped: aún no contiene la firma).
	canonicalDoc, err := canonicalRoot(root)
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar comprobante: %w", err)
	}
	docDigest := digestB64(canonicalDoc)

	// 2) SignedProperties y su digest.
	signingTime := s.now().Format("2006-01-02T15:04:05-07:00")
	certDigest, issuerName, serial := CertDigestAndIssuerSerial(s.cert)
	signedProps := buildSignedProperties(signingTime, certDigest, issuerName, serial)
	canonicalProps, err := Canonicalize([]byte(signedProps))
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar SignedProperties: %w", err)
	}
	propsDigest := digestB64(canonicalProps)

	// 3) SignedInfo firmado con RSA-SHA256.
	signedInfo := buildSignedInfo(docDigest, propsDigest)
	canonicalInfo, err := Canonicalize([]byte(signedInfo))
	if err != nil {
		return nil, fmt.Errorf("signer: canonicalizar SignedInfo: %w", err)
	}
	hash := sha256.Sum256(canonicalInfo)
	sigValue, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hash[:])
	if err != nil {
		return nil, fmt.Errorf("signer: firmar SignedInfo: %w", err)
	}

	signatureXML := buildSignature(signedInfo, signedProps,
		base64.StdEncoding.EncodeToString(sigValue),
		base64.StdEncoding.EncodeToString(s.cert.Raw))

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("signer: parsear Signature: %w", err)
	}
	root.AddChild(sigDoc.Root())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("signer: serializar XML firmado: %w", err)
	}
	return out, nil
}

// canonicalRoot C14N del elemento raíz, sin declaración XML.
func canonicalRoot(root *etree.Element) ([]byte, error) {
	tmp := etree.NewDocument()
	tmp.SetRoot(root.Copy())
	b, err := tmp.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return Canonicalize(b)
}

// Canonicalize aplica C14N 1.0 inclusivo.
func Canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func digestB64(b []byte) string {
	h := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(h[:])
}

func buildSignedInfo(docDigest, propsDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="` + ComprobanteRefID + `" URI="` + ComprobanteRef + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference Type="` + TypeSignedProps + `" URI="` + SignedPropsRefURI + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignedProperties(signingTime, certDigest, issuerName, serial string) string {
	var sb strings.Builder
	sb.WriteString(`<etsi:SignedProperties xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceXAdES + `" Id="` + SignedPropsID + `">`)
	sb.WriteString(`<etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SigningTime>` + signingTime + `</etsi:SigningTime>`)
	sb.WriteString(`<etsi:SigningCertificate><etsi:Cert><etsi:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + certDigest + `</ds:DigestValue></etsi:CertDigest>`)
	sb.WriteString(`<etsi:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></etsi:IssuerSerial>`)
	sb.WriteString(`</etsi:Cert></etsi:SigningCertificate>`)
	sb.WriteString(`</etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SignedDataObjectProperties>`)
	sb.WriteString(`<etsi:DataObjectFormat ObjectReference="#` + ComprobanteRefID + `">`)
	sb.WriteString(`<etsi:Description>contenido comprobante</etsi:Description>`)
	sb.WriteString(`<etsi:MimeType>text/xml</etsi:MimeType>`)
	sb.WriteString(`</etsi:DataObjectFormat></etsi:SignedDataObjectProperties>`)
	sb.WriteString(`</etsi:SignedProperties>`)
	return sb.String()
}

func buildSignature(signedInfo, signedProps, signatureValue, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceXAdES + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfo)
	sb.WriteString(`<ds:SignatureValue Id="` + SignatureValueID + `">` + signatureValue + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo Id="` + KeyInfoID + `"><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`<ds:Object><etsi:QualifyingProperties Target="#` + SignatureID + `">`)
	sb.WriteString(signedProps)
	sb.WriteString(`</etsi:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
