// Package pdf genera la Representación Impresa del Documento Electrónico (RIDE)
// de una factura del SRI, adjunta al correo de despacho.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social + RUC   │  FACTURA N° + Clave acceso  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Nombre + Identificación + fecha de emisión      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cód. | Cant | Descripción | P.Unit | Total          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA / VALOR TOTAL                      │
//	│  AUTORIZACIÓN: estado, número, fecha + código de barras     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ billing.InvoicePDFGenerator = (*RIDEGenerator)(nil)

// RIDEGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type RIDEGenerator struct {
	issuer  domainsri.Issuer
	taxRate decimal.Decimal
}

// NewRIDEGenerator construye el generador con los datos del emisor.
func NewRIDEGenerator(issuer domainsri.Issuer, taxRate decimal.Decimal) *RIDEGenerator {
	return &RIDEGenerator{issuer: issuer, taxRate: taxRate}
}

// Generate arma el PDF. Sin comprobante electrónico (doc nil) se imprime como borrador
// sin clave de acceso ni datos de autorización.
func (g *RIDEGenerator) Generate(inv *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, doc *entity.FiscalDocument) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("pdf: factura nil")
	}
	if client == nil {
		client = &entity.Client{Name: "CONSUMIDOR FINAL"}
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("RIDE "+inv.InvoiceNumber, true).
		WithAuthor(nonEmpty(g.issuer.RazonSocial, "Emisor"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(inv, doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRow(inv, client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(authorizationRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *RIDEGenerator) headerRow(inv *entity.Invoice, doc *entity.FiscalDocument) core.Row {
	number := fmt.Sprintf("%s-%s-%s", nonEmpty(g.issuer.Establishment, "001"),
		nonEmpty(g.issuer.EmissionPoint, "001"), domainsri.FormatSequential(inv.Sequential))
	ambiente := "PRUEBAS"
	if g.issuer.Environment == "2" {
		ambiente = "PRODUCCIÓN"
	}

	left := col.New(7).Add(
		text.New(nonEmpty(g.issuer.RazonSocial, "-"), props.Text{
			Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
		}),
		text.New("RUC: "+g.issuer.RUC, props.Text{Size: 9, Top: 9, Color: colorGray}),
		text.New("Dir. Matriz: "+nonEmpty(g.issuer.DirMatriz, "-"), props.Text{Size: 8, Top: 14, Color: colorGray}),
	)
	right := col.New(5).Add(
		text.New("FACTURA", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1,
		}),
		text.New("No. "+number, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7}),
		text.New("Ambiente: "+ambiente+"   |   Emisión: NORMAL", props.Text{
			Size: 7, Align: align.Right, Top: 14, Color: colorGray,
		}),
	)
	if doc == nil {
		right.Add(text.New("BORRADOR: sin comprobante electrónico", props.Text{
			Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 19,
		}))
	}
	return row.New(24).Add(left, right)
}

func buyerRow(inv *entity.Invoice, client *entity.Client) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("COMPRADOR", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(client.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Identificación: %s   |   Fecha emisión: %s   |   Ref. interna: %s",
				nonEmpty(client.TaxID, "9999999999999"),
				inv.IssueDate.Format("02/01/2006"),
				inv.InvoiceNumber,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cód.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Total", 2, align.Right),
	)
}

func tableDetailRows(items []*entity.InvoiceItem) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for i, it := range items {
		code := it.ProductID
		if code == "" {
			code = fmt.Sprintf("ITEM-%03d", i+1)
		}
		if len(code) > 12 {
			code = code[:12]
		}
		rows = append(rows, row.New(7).Add(
			col.New(2).Add(text.New(code, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(it.Quantity.StringFixed(2), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(it.Description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatUSD(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatUSD(it.LineTotal()), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func (g *RIDEGenerator) totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	pct := g.taxRate.Mul(decimal.NewFromInt(100)).StringFixed(0)

	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("SUBTOTAL:"),
			text.New("IVA "+pct+"%:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("VALOR TOTAL:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 11,
			}),
		),
		col.New(3).Add(
			value(formatUSD(inv.Subtotal)),
			text.New(formatUSD(inv.TaxAmount), props.Text{Size: 9, Align: align.Right, Right: 1, Top: 5}),
			text.New(formatUSD(inv.TotalAmount), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 11,
			}),
		),
	)
}

func authorizationRows(doc *entity.FiscalDocument) []core.Row {
	if doc == nil {
		return []core.Row{row.New(10).Add(col.New(12).Add(
			text.New("Documento sin validez tributaria hasta su autorización por el SRI.", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center, Color: colorGray, Top: 2,
			}),
		))}
	}

	authDate := "-"
	if doc.AuthorizationDate != nil {
		authDate = doc.AuthorizationDate.Format("02/01/2006 15:04:05")
	}
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(text.New("INFORMACIÓN ELECTRÓNICA SRI", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
		row.New(5).Add(col.New(12).Add(text.New(fmt.Sprintf("Estado: %s   |   No. autorización: %s   |   Fecha: %s",
			doc.Status, nonEmpty(doc.AuthorizationNumber, "-"), authDate), props.Text{Size: 7, Top: 1}))),
		row.New(5).Add(col.New(12).Add(text.New("CLAVE DE ACCESO", props.Text{
			Style: fontstyle.Bold, Size: 7, Top: 1,
		}))),
		row.New(14).Add(col.New(12).Add(code.NewBar(doc.AccessKey, props.Barcode{Percent: 100}))),
		row.New(5).Add(col.New(12).Add(text.New(doc.AccessKey, props.Text{
			Size: 7, Align: align.Center, Color: colorGray, Top: 1,
		}))),
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

// formatUSD monto con separador de miles y dos decimales. Ej: 1234.5 → "$1,234.50".
func formatUSD(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	out := "$" + string(buf) + frac
	if neg {
		out = "-" + out
	}
	return out
}
