package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferRepository puerto de persistencia de traslados (cabecera, ítems e historial).
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// GetForUpdate igual que GetByID pero bloquea el traslado.
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	// Update guarda estado, ítems e historial nuevo.
	Update(ctx context.Context, transfer *entity.Transfer) error
}
