package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostLayer lote de unidades adquiridas a un costo unitario (proyección del libro).
type CostLayer struct {
	VariationID  string
	LocationID   string
	AcquiredAt   time.Time
	UnitCost     decimal.Decimal
	QtyRemaining decimal.Decimal
	SourceSeq    int64 // Seq del movimiento de entrada que creó la capa
}

// Value costo total de lo que queda en la capa.
func (l CostLayer) Value() decimal.Decimal {
	return l.QtyRemaining.Mul(l.UnitCost)
}
