package sri

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/beevik/etree"

	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// DigestElement nodo que guarda la huella del comprobante cuando no hay certificado.
const DigestElement = "firmaDigital"

var _ pkgsri.Signer = (*ContentHashSigner)(nil)

// ContentHashSigner firma de marcador: agrega <firmaDigital> con el SHA-256 hex del XML
// recibido como último hijo de la raíz. Determinista; sirve para ambientes sin certificado.
type ContentHashSigner struct{}

// NewContentHashSigner crea el firmador de marcador.
func NewContentHashSigner() *ContentHashSigner {
	return &ContentHashSigner{}
}

// Sign devuelve el documento con la huella incorporada.
func (s *ContentHashSigner) Sign(xmlBytes []byte) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sri: XML vacío")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sri: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sri: documento sin raíz")
	}
	if root.SelectElement(DigestElement) != nil {
		return nil, fmt.Errorf("sri: el documento ya está firmado")
	}

	sum := sha256.Sum256(xmlBytes)
	root.CreateElement(DigestElement).SetText(hex.EncodeToString(sum[:]))

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sri: serializar XML firmado: %w", err)
	}
	return out, nil
}
