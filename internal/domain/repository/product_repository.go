package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// VariationRepository define el puerto de persistencia para variaciones de producto (DIP).
type VariationRepository interface {
	Create(ctx context.Context, variation *entity.Variation) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Variation, error)
}
