package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para bodegas/tiendas (DIP).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	ListByBusiness(ctx context.Context, businessID string) ([]*entity.Location, error)
}
