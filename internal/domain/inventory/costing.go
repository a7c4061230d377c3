package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Projection resultado de reproducir el libro de un par con un método de costeo.
type Projection struct {
	Layers       []entity.CostLayer
	ConsumedCost decimal.Decimal // costo atribuido a todas las salidas
	Uncosted     decimal.Decimal // unidades que salieron sin capa disponible
}

// Quantity suma de unidades en capas.
func (p Projection) Quantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Layers {
		total = total.Add(l.QtyRemaining)
	}
	return total
}

// TotalValue Σ(qtyRemaining * unitCost).
func (p Projection) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Layers {
		total = total.Add(l.Value())
	}
	return total
}

// UnitCost costo unitario promedio de lo que queda en capas.
func (p Projection) UnitCost() decimal.Decimal {
	qty := p.Quantity()
	if qty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return p.TotalValue().Div(qty)
}

// ConsumeLayers consume qty unidades de las capas en el orden del método.
// Devuelve las capas restantes (sin capas vacías), el costo consumido y lo que no se pudo costear.
// Las capas nunca quedan negativas.
func ConsumeLayers(layers []entity.CostLayer, qty decimal.Decimal, method ValuationMethod) ([]entity.CostLayer, decimal.Decimal, decimal.Decimal) {
	remaining := make([]entity.CostLayer, len(layers))
	copy(remaining, layers)
	consumed := decimal.Zero
	pending := qty

	order := make([]int, len(remaining))
	for i := range order {
		order[i] = i
	}
	if method == ValuationLIFO {
		sort.SliceStable(order, func(a, b int) bool { return layerAfter(remaining[order[a]], remaining[order[b]]) })
	} else {
		sort.SliceStable(order, func(a, b int) bool { return layerAfter(remaining[order[b]], remaining[order[a]]) })
	}

	for _, idx := range order {
		if !pending.GreaterThan(decimal.Zero) {
			break
		}
		layer := &remaining[idx]
		take := decimal.Min(layer.QtyRemaining, pending)
		if !take.GreaterThan(decimal.Zero) {
			continue
		}
		layer.QtyRemaining = layer.QtyRemaining.Sub(take)
		consumed = consumed.Add(take.Mul(layer.UnitCost))
		pending = pending.Sub(take)
	}
	return dropEmpty(remaining), consumed, decimal.Max(pending, decimal.Zero)
}

// layerAfter indica si a fue adquirida después de b (fecha y luego Seq).
func layerAfter(a, b entity.CostLayer) bool {
	if !a.AcquiredAt.Equal(b.AcquiredAt) {
		return a.AcquiredAt.After(b.AcquiredAt)
	}
	return a.SourceSeq > b.SourceSeq
}

func dropEmpty(layers []entity.CostLayer) []entity.CostLayer {
	out := make([]entity.CostLayer, 0, len(layers))
	for _, l := range layers {
		if l.QtyRemaining.GreaterThan(decimal.Zero) {
			out = append(out, l)
		}
	}
	return out
}

// Project reproduce los movimientos de un par (ordenados por Seq) y construye sus capas de costo.
// Entradas crean capas (o actualizan el promedio); salidas las consumen. Los movimientos en cero
// no afectan la valuación. Un ajuste positivo entra al costo informado en el movimiento.
func Project(movements []entity.StockMovement, method ValuationMethod) Projection {
	var p Projection
	p.ConsumedCost = decimal.Zero
	p.Uncosted = decimal.Zero

	for _, m := range movements {
		switch {
		case m.Delta.GreaterThan(decimal.Zero):
			if method == ValuationWeightedAverage {
				p.Layers = averageIn(p.Layers, m)
				continue
			}
			p.Layers = append(p.Layers, entity.CostLayer{
				VariationID:  m.VariationID,
				LocationID:   m.LocationID,
				AcquiredAt:   m.CreatedAt,
				UnitCost:     m.UnitCost,
				QtyRemaining: m.Delta,
				SourceSeq:    m.Seq,
			})
		case m.Delta.LessThan(decimal.Zero):
			var cost, short decimal.Decimal
			p.Layers, cost, short = ConsumeLayers(p.Layers, m.Delta.Neg(), method)
			p.ConsumedCost = p.ConsumedCost.Add(cost)
			p.Uncosted = p.Uncosted.Add(short)
		}
	}
	return p
}

// averageIn recalcula la capa sintética del promedio ponderado con una entrada.
func averageIn(layers []entity.CostLayer, m entity.StockMovement) []entity.CostLayer {
	if len(layers) == 0 {
		return []entity.CostLayer{{
			VariationID:  m.VariationID,
			LocationID:   m.LocationID,
			AcquiredAt:   m.CreatedAt,
			UnitCost:     m.UnitCost,
			QtyRemaining: m.Delta,
			SourceSeq:    m.Seq,
		}}
	}
	layer := layers[0]
	layer.UnitCost = CostCalculator(layer.QtyRemaining, layer.UnitCost, m.Delta, m.UnitCost)
	layer.QtyRemaining = layer.QtyRemaining.Add(m.Delta)
	layer.AcquiredAt = m.CreatedAt
	layer.SourceSeq = m.Seq
	return []entity.CostLayer{layer}
}
