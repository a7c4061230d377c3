package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SerialRepository puerto para unidades serializadas y su rastro de movimientos.
type SerialRepository interface {
	// Create persiste la unidad y le asigna un ID > 0.
	Create(ctx context.Context, unit *entity.SerialUnit) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.SerialUnit, error)
	// GetForUpdate igual que GetByID pero bloquea la fila.
	GetForUpdate(ctx context.Context, id int64) (*entity.SerialUnit, error)
	GetBySerialNumber(ctx context.Context, businessID, serialNumber string) (*entity.SerialUnit, error)
	Update(ctx context.Context, unit *entity.SerialUnit) error
	// CreateMovement falla si SerialNumberID no referencia una unidad existente.
	CreateMovement(ctx context.Context, movement *entity.SerialMovement) error
	ListMovements(ctx context.Context, serialID int64) ([]*entity.SerialMovement, error)
}
