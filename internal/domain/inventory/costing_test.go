package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func layer(seq int64, qty, cost string) entity.CostLayer {
	return entity.CostLayer{
		VariationID:  "var-a",
		LocationID:   "loc-a",
		AcquiredAt:   t0.Add(time.Duration(seq) * time.Hour),
		UnitCost:     d(cost),
		QtyRemaining: d(qty),
		SourceSeq:    seq,
	}
}

func mov(seq int64, delta, cost string) entity.StockMovement {
	return entity.StockMovement{
		Seq:         seq,
		VariationID: "var-a",
		LocationID:  "loc-a",
		Delta:       d(delta),
		UnitCost:    d(cost),
		CreatedAt:   t0.Add(time.Duration(seq) * time.Hour),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ConsumeLayers
// ──────────────────────────────────────────────────────────────────────────────

func TestConsumeLayers_FIFO_ConsumePrimeroLaMasAntigua(t *testing.T) {
	layers := []entity.CostLayer{layer(1, "10", "5"), layer(2, "5", "8")}

	rest, cost, short := inventory.ConsumeLayers(layers, d("12"), inventory.ValuationFIFO)

	assert.True(t, cost.Equal(d("66")), "10×5 + 2×8 = 66, obtenido %s", cost)
	assert.True(t, short.IsZero())
	require.Len(t, rest, 1)
	assert.True(t, rest[0].QtyRemaining.Equal(d("3")))
	assert.True(t, rest[0].UnitCost.Equal(d("8")))
}

func TestConsumeLayers_LIFO_ConsumePrimeroLaMasReciente(t *testing.T) {
	layers := []entity.CostLayer{layer(1, "10", "5"), layer(2, "5", "8")}

	rest, cost, short := inventory.ConsumeLayers(layers, d("12"), inventory.ValuationLIFO)

	assert.True(t, cost.Equal(d("75")), "5×8 + 7×5 = 75, obtenido %s", cost)
	assert.True(t, short.IsZero())
	require.Len(t, rest, 1)
	assert.True(t, rest[0].QtyRemaining.Equal(d("3")))
	assert.True(t, rest[0].UnitCost.Equal(d("5")))
}

func TestConsumeLayers_SinCapasSuficientes_ReportaFaltante(t *testing.T) {
	layers := []entity.CostLayer{layer(1, "4", "5")}

	rest, cost, short := inventory.ConsumeLayers(layers, d("6"), inventory.ValuationFIFO)

	assert.Empty(t, rest)
	assert.True(t, cost.Equal(d("20")))
	assert.True(t, short.Equal(d("2")))
}

func TestConsumeLayers_NoModificaLaEntrada(t *testing.T) {
	layers := []entity.CostLayer{layer(1, "10", "5")}

	_, _, _ = inventory.ConsumeLayers(layers, d("3"), inventory.ValuationFIFO)

	assert.True(t, layers[0].QtyRemaining.Equal(d("10")))
}

func TestConsumeLayers_MismaFecha_DesempataPorSeq(t *testing.T) {
	a := layer(1, "2", "5")
	b := layer(2, "2", "9")
	b.AcquiredAt = a.AcquiredAt

	_, cost, _ := inventory.ConsumeLayers([]entity.CostLayer{b, a}, d("2"), inventory.ValuationFIFO)
	assert.True(t, cost.Equal(d("10")), "FIFO toma la capa de menor Seq")
}

// ──────────────────────────────────────────────────────────────────────────────
// Project
// ──────────────────────────────────────────────────────────────────────────────

func TestProject_FIFO(t *testing.T) {
	movements := []entity.StockMovement{
		mov(1, "10", "5"),
		mov(2, "5", "8"),
		mov(3, "-12", "0"),
	}

	p := inventory.Project(movements, inventory.ValuationFIFO)

	assert.True(t, p.Quantity().Equal(d("3")))
	assert.True(t, p.TotalValue().Equal(d("24")))
	assert.True(t, p.UnitCost().Equal(d("8")))
	assert.True(t, p.ConsumedCost.Equal(d("66")))
	assert.True(t, p.Uncosted.IsZero())
}

func TestProject_PromedioPonderado(t *testing.T) {
	movements := []entity.StockMovement{
		mov(1, "10", "5"),
		mov(2, "10", "7"),
		mov(3, "-5", "0"),
	}

	p := inventory.Project(movements, inventory.ValuationWeightedAverage)

	require.Len(t, p.Layers, 1, "el promedio mantiene una sola capa")
	assert.True(t, p.UnitCost().Equal(d("6")))
	assert.True(t, p.Quantity().Equal(d("15")))
	assert.True(t, p.TotalValue().Equal(d("90")))
	assert.True(t, p.ConsumedCost.Equal(d("30")))
}

func TestProject_MovimientosEnCeroNoAfectan(t *testing.T) {
	movements := []entity.StockMovement{mov(1, "4", "2"), mov(2, "0", "99")}

	p := inventory.Project(movements, inventory.ValuationFIFO)

	require.Len(t, p.Layers, 1)
	assert.True(t, p.TotalValue().Equal(d("8")))
}

func TestProject_SinMovimientos(t *testing.T) {
	p := inventory.Project(nil, inventory.ValuationLIFO)
	assert.True(t, p.Quantity().IsZero())
	assert.True(t, p.UnitCost().IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// CostCalculator / ValuationMethod
// ──────────────────────────────────────────────────────────────────────────────

func TestCostCalculator(t *testing.T) {
	assert.True(t, inventory.CostCalculator(d("10"), d("5"), d("10"), d("7")).Equal(d("6")))
	assert.True(t, inventory.CostCalculator(d("0"), d("5"), d("3"), d("9")).Equal(d("9")), "sin stock manda el costo de la entrada")
	assert.True(t, inventory.CostCalculator(d("-2"), d("5"), d("3"), d("4")).Equal(d("4")))
}

func TestParseValuationMethod(t *testing.T) {
	cases := map[string]inventory.ValuationMethod{
		"fifo":             inventory.ValuationFIFO,
		" LIFO ":           inventory.ValuationLIFO,
		"weighted-average": inventory.ValuationWeightedAverage,
		"wavg":             inventory.ValuationWeightedAverage,
	}
	for in, want := range cases {
		got, err := inventory.ParseValuationMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.True(t, got.IsValid())
	}

	_, err := inventory.ParseValuationMethod("peps")
	assert.Error(t, err)
	assert.True(t, inventory.ValuationFIFO.UsesLayers())
	assert.False(t, inventory.ValuationWeightedAverage.UsesLayers())
}
