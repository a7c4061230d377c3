package repository

import "github.com/shopspring/decimal"

// LedgerSum agregado del libro para un par variación/bodega.
type LedgerSum struct {
	Total decimal.Decimal
	Count int
}
