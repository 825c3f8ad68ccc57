// Package sri adaptadores de salida hacia el SRI (Ecuador): XML del comprobante, firma y
// servicios web de recepción y autorización.
package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// Versión del esquema de factura (ficha técnica offline).
const FacturaVersion = "1.1.0"

// ComprobanteID atributo id de la raíz; la firma XAdES lo referencia como #comprobante.
const ComprobanteID = "comprobante"

var _ billing.DocumentBuilder = (*XMLBuilder)(nil)

// XMLBuilder construye el XML <factura> sin firma. No lee el reloj ni repositorios.
type XMLBuilder struct{}

// NewXMLBuilder crea el builder.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// Build genera el documento a partir de la factura, sus líneas y el receptor.
func (b *XMLBuilder) Build(in domainsri.DocumentInput) ([]byte, error) {
	if in.Invoice == nil || in.Client == nil {
		return nil, fmt.Errorf("sri: faltan factura o cliente")
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("sri: la factura no tiene líneas")
	}
	if in.AccessKey == "" {
		return nil, fmt.Errorf("sri: clave de acceso vacía")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	w := &xmlWriter{enc: enc}
	w.start("factura", xml.Attr{Name: xml.Name{Local: "id"}, Value: ComprobanteID},
		xml.Attr{Name: xml.Name{Local: "version"}, Value: FacturaVersion})
	w.infoTributaria(in)
	w.infoFactura(in)
	w.detalles(in)
	w.infoAdicional(in)
	w.end("factura")

	if w.err != nil {
		return nil, fmt.Errorf("sri: serializar XML: %w", w.err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("sri: serializar XML: %w", err)
	}
	return buf.Bytes(), nil
}

// xmlWriter acumula el primer error del encoder para no verificar cada token.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *xmlWriter) start(local string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs})
}

func (w *xmlWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

func (w *xmlWriter) leaf(local, value string, attrs ...xml.Attr) {
	w.start(local, attrs...)
	w.token(xml.CharData(value))
	w.end(local)
}

// text como leaf pero normaliza el valor (NFC, sin caracteres de control).
func (w *xmlWriter) text(local, value string) {
	w.leaf(local, normalizeText(value))
}

func (w *xmlWriter) infoTributaria(in domainsri.DocumentInput) {
	is := in.Issuer
	w.start("infoTributaria")
	w.leaf("ambiente", is.Environment)
	w.leaf("tipoEmision", pkgsri.EmissionTypeNormal)
	w.text("razonSocial", is.RazonSocial)
	if is.NombreComercial != "" {
		w.text("nombreComercial", is.NombreComercial)
	}
	w.leaf("ruc", is.RUC)
	w.leaf("claveAcceso", in.AccessKey)
	w.leaf("codDoc", pkgsri.DocTypeFactura)
	w.leaf("estab", is.Establishment)
	w.leaf("ptoEmi", is.EmissionPoint)
	w.leaf("secuencial", domainsri.FormatSequential(in.Invoice.Sequential))
	w.text("dirMatriz", is.DirMatriz)
	w.end("infoTributaria")
}

func (w *xmlWriter) infoFactura(in domainsri.DocumentInput) {
	inv, client := in.Invoice, in.Client
	percentCode := pkgsri.IVAPercentageCode(in.TaxRate)

	w.start("infoFactura")
	w.leaf("fechaEmision", inv.IssueDate.Format("02/01/2006"))
	w.leaf("tipoIdentificacionComprador", pkgsri.IdentificationType(client.TaxID))
	w.text("razonSocialComprador", client.Name)
	w.leaf("identificacionComprador", buyerID(client.TaxID))
	if client.Address != "" {
		w.text("direccionComprador", client.Address)
	}
	w.leaf("totalSinImpuestos", money(inv.Subtotal))
	w.leaf("totalDescuento", money(decimal.Zero))
	w.start("totalConImpuestos")
	w.start("totalImpuesto")
	w.leaf("codigo", pkgsri.TaxCodeIVA)
	w.leaf("codigoPorcentaje", percentCode)
	w.leaf("baseImponible", money(inv.Subtotal))
	w.leaf("valor", money(inv.TaxAmount))
	w.end("totalImpuesto")
	w.end("totalConImpuestos")
	w.leaf("propina", money(decimal.Zero))
	w.leaf("importeTotal", money(inv.TotalAmount))
	w.leaf("moneda", pkgsri.CurrencyDollar)
	w.start("pagos")
	w.start("pago")
	w.leaf("formaPago", pkgsri.PaymentOtrosSistemaFinanciero)
	w.leaf("total", money(inv.TotalAmount))
	w.end("pago")
	w.end("pagos")
	w.end("infoFactura")
}

func (w *xmlWriter) detalles(in domainsri.DocumentInput) {
	percentCode := pkgsri.IVAPercentageCode(in.TaxRate)
	rate := in.TaxRate.Mul(decimal.NewFromInt(100))

	w.start("detalles")
	for i, it := range in.Items {
		base := it.LineTotal().Round(2)
		code := it.ProductID
		if code == "" {
			code = fmt.Sprintf("ITEM-%03d", i+1)
		}
		w.start("detalle")
		w.text("codigoPrincipal", code)
		w.text("descripcion", it.Description)
		w.leaf("cantidad", it.Quantity.StringFixed(2))
		w.leaf("precioUnitario", it.UnitPrice.StringFixed(2))
		w.leaf("descuento", money(decimal.Zero))
		w.leaf("precioTotalSinImpuesto", money(base))
		w.start("impuestos")
		w.start("impuesto")
		w.leaf("codigo", pkgsri.TaxCodeIVA)
		w.leaf("codigoPorcentaje", percentCode)
		w.leaf("tarifa", rate.StringFixed(2))
		w.leaf("baseImponible", money(base))
		w.leaf("valor", money(base.Mul(in.TaxRate)))
		w.end("impuesto")
		w.end("impuestos")
		w.end("detalle")
	}
	w.end("detalles")
}

// infoAdicional solo incluye los campos con valor; sin ninguno se omite el bloque.
func (w *xmlWriter) infoAdicional(in domainsri.DocumentInput) {
	type campo struct{ nombre, valor string }
	var campos []campo
	if in.Client.Email != "" {
		campos = append(campos, campo{"Email", in.Client.Email})
	}
	if in.Client.Phone != "" {
		campos = append(campos, campo{"Telefono", in.Client.Phone})
	}
	if len(campos) == 0 {
		return
	}
	w.start("infoAdicional")
	for _, c := range campos {
		w.leaf("campoAdicional", normalizeText(c.valor), xml.Attr{Name: xml.Name{Local: "nombre"}, Value: c.nombre})
	}
	w.end("infoAdicional")
}

func money(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func buyerID(taxID string) string {
	if taxID == "" {
		return pkgsri.ConsumerFinalID
	}
	return taxID
}

// normalizeText la cadena de transformers guarda estado; se arma una por llamada.
func normalizeText(s string) string {
	cleaner := transform.Chain(runes.Remove(runes.In(unicode.Cc)), norm.NFC)
	out, _, err := transform.String(cleaner, s)
	if err != nil {
		return norm.NFC.String(s)
	}
	return out
}
