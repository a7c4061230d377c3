package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance representa el saldo disponible de una variación en una bodega (tabla materializada).
// Solo el Balance Store la modifica; Version crece en cada escritura para el chequeo optimista.
type StockBalance struct {
	VariationID string
	LocationID  string
	Quantity    decimal.Decimal
	Version     int64
	UpdatedAt   time.Time
}
