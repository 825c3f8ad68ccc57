// Constantes de la firma XAdES-BES exigida por el SRI para comprobantes offline.

package signer

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"
)

// ComprobanteRef Reference al atributo id="comprobante" de la raíz <factura>.
const ComprobanteRef = "#comprobante"

// Ids internos de la firma.
const (
	SignatureID       = "Signature-comprobante"
	SignedPropsID     = "SignedProperties-comprobante"
	SignatureValueID  = "SignatureValue-comprobante"
	KeyInfoID         = "Certificate-comprobante"
	ComprobanteRefID  = "Reference-comprobante"
	SignedPropsRefURI = "#" + SignedPropsID
)
