package sri

// Signer firma el XML de un comprobante y devuelve el documento con la firma incorporada.
type Signer interface {
	Sign(xmlBytes []byte) ([]byte, error)
}
