package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// BalanceRepository define el puerto para consultar/actualizar saldos por variación+bodega.
// Se usa dentro de transacciones para garantizar consistencia.
type BalanceRepository interface {
	// Get devuelve el saldo; si no existe la fila devuelve un saldo en cero (Version 0).
	Get(ctx context.Context, variationID, locationID string) (*entity.StockBalance, error)
	// GetForUpdate crea la fila en cero si falta y la bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, variationID, locationID string) (*entity.StockBalance, error)
	// UpdateVersioned guarda la cantidad si la versión sigue siendo expectedVersion;
	// devuelve domain.ErrConcurrencyConflict si otro escritor la avanzó.
	UpdateVersioned(ctx context.Context, balance *entity.StockBalance, expectedVersion int64) error
	// ListByLocation saldos de una bodega; locationID vacío lista todas.
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockBalance, error)
}
