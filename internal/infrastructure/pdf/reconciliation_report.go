// Package pdf genera el reporte de conciliación de una bodega para auditoría.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Bodega + negocio      │  Fecha de corte              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: pares revisados / inconsistentes                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Variación | Saldo | Libro | Diferencia | Estado     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CORRECCIONES PROPUESTAS (pendientes de aprobación)          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
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

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 176, Green: 32, Blue: 32}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// ReportHeader datos de cabecera del reporte.
type ReportHeader struct {
	BusinessID   string
	LocationID   string
	LocationName string
	GeneratedBy  string
	GeneratedAt  time.Time
}

// ReconciliationReportGenerator arma el PDF con Maroto v2.
type ReconciliationReportGenerator struct{}

// NewReconciliationReportGenerator construye el generador.
func NewReconciliationReportGenerator() *ReconciliationReportGenerator {
	return &ReconciliationReportGenerator{}
}

// Generate devuelve los bytes del PDF. Las correcciones propuestas se listan al final.
func (g *ReconciliationReportGenerator) Generate(
	_ context.Context,
	header ReportHeader,
	reports []*entity.ConsistencyReport,
) ([]byte, error) {
	if header.GeneratedAt.IsZero() {
		header.GeneratedAt = time.Now().UTC()
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Conciliación de inventario", true).
		WithAuthor(nonEmpty(header.GeneratedBy, "inventario-ledger"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(header))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(reports))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(reports)...)

	if pending := correctionRows(reports); len(pending) > 0 {
		m.AddRows(line.NewRow(3))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		m.AddRows(pending...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(h ReportHeader) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(h.LocationName, h.LocationID), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Negocio: "+nonEmpty(h.BusinessID, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("CONCILIACIÓN SALDO / LIBRO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Corte: "+h.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 9, Align: align.Right, Top: 8,
			}),
		),
	)
}

func summaryRow(reports []*entity.ConsistencyReport) core.Row {
	bad := 0
	for _, r := range reports {
		if !r.Consistent {
			bad++
		}
	}
	status := props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}
	label := "Sin diferencias"
	if bad > 0 {
		status.Color = colorAlert
		label = fmt.Sprintf("%d par(es) con diferencias", bad)
	}
	return row.New(14).Add(
		col.New(6).Add(
			text.New("RESUMEN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Pares revisados: %d", len(reports)), props.Text{Size: 9, Top: 6}),
		),
		col.New(6).Add(text.New(label, status)),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Variación", 4, align.Left),
		h("Saldo", 2, align.Right),
		h("Libro", 2, align.Right),
		h("Diferencia", 2, align.Right),
		h("Estado", 2, align.Center),
	)
}

func tableDetailRows(reports []*entity.ConsistencyReport) []core.Row {
	result := make([]core.Row, 0, len(reports))
	for _, r := range reports {
		state := props.Text{Size: 8, Align: align.Center, Top: 1}
		label := "OK"
		if !r.Consistent {
			state.Color = colorAlert
			state.Style = fontstyle.Bold
			label = "DIFERENCIA"
			if r.BrokenChainSeq > 0 {
				label = fmt.Sprintf("CADENA #%d", r.BrokenChainSeq)
			}
		}
		result = append(result, row.New(7).Add(
			col.New(4).Add(text.New(r.VariationID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQty(r.StoredBalance.StringFixed(2)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatQty(r.LedgerSum.StringFixed(2)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatQty(r.Difference.StringFixed(2)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(label, state)),
		))
	}
	return result
}

func correctionRows(reports []*entity.ConsistencyReport) []core.Row {
	var rows []core.Row
	for _, r := range reports {
		if r.Consistent || r.Proposed == nil {
			continue
		}
		if rows == nil {
			rows = append(rows, row.New(6).Add(col.New(12).Add(
				text.New("CORRECCIONES PROPUESTAS (requieren aprobación)", props.Text{
					Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
				}),
			)))
		}
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("%s: %s, delta %s. %s",
				r.VariationID, r.Proposed.Resolution, r.Proposed.Delta.StringFixed(2), r.Proposed.Note),
				props.Text{Size: 7.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatQty inserta puntos de miles en la parte entera y coma decimal.
// Ej: "-1234.50" → "-1.234,50"
func formatQty(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i+1:]
			break
		}
	}
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+len(frac)+2)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	if frac != "" {
		buf = append(buf, ',')
		buf = append(buf, frac...)
	}
	return sign + string(buf)
}
