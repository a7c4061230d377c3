package repository

import (
	"context"
	"time"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Balances   BalanceRepository
	Movements  StockMovementRepository
	Serials    SerialRepository
	Transfers  TransferRepository
	Returns    ReturnRepository
	Locations  LocationRepository
	Variations VariationRepository
}

// TxOptions parámetros de una unidad atómica.
type TxOptions struct {
	// Timeout límite de la transacción (0 = el del runner).
	Timeout time.Duration
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y nada de lo escrito persiste.
type TxRunner interface {
	Run(ctx context.Context, opts TxOptions, fn func(ctx context.Context, repos Repos) error) error
}
