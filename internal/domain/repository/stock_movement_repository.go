package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockMovementRepository puerto del libro de movimientos. Solo inserción: no hay Update ni Delete.
type StockMovementRepository interface {
	// Create inserta el movimiento y asigna ID, Seq y CreatedAt si faltan.
	Create(ctx context.Context, movement *entity.StockMovement) error
	// FindByKey busca el movimiento de un evento de negocio (nil si no existe).
	FindByKey(ctx context.Context, key entity.MovementKey) (*entity.StockMovement, error)
	// ListByReference movimientos de una referencia (p. ej. todos los de un traslado).
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error)
	// ListByPair movimientos de un par ordenados por Seq ascendente.
	ListByPair(ctx context.Context, variationID, locationID string) ([]entity.StockMovement, error)
	// ListByPairPage movimientos de un par, más recientes primero.
	ListByPairPage(ctx context.Context, variationID, locationID string, limit, offset int) ([]*entity.StockMovement, error)
	// SumByPair suma de deltas y cantidad de movimientos del par.
	SumByPair(ctx context.Context, variationID, locationID string) (LedgerSum, error)
	// Watermark Seq máximo del libro (marca de agua para caché); 0 si está vacío.
	Watermark(ctx context.Context, locationID string) (int64, error)
}
