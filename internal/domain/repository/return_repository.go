package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ReturnRepository puerto de persistencia de devoluciones de clientes y a proveedores.
type ReturnRepository interface {
	CreateCustomerReturn(ctx context.Context, r *entity.CustomerReturn) error
	GetCustomerReturnForUpdate(ctx context.Context, id string) (*entity.CustomerReturn, error)
	UpdateCustomerReturn(ctx context.Context, r *entity.CustomerReturn) error
	CreateSupplierReturn(ctx context.Context, r *entity.SupplierReturn) error
	GetSupplierReturnForUpdate(ctx context.Context, id string) (*entity.SupplierReturn, error)
	UpdateSupplierReturn(ctx context.Context, r *entity.SupplierReturn) error
}
