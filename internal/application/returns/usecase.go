package returns

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// UseCase procesa devoluciones de clientes y a proveedores. La aprobación aplica el efecto en
// stock y en unidades serializadas dentro de una sola transacción.
type UseCase struct {
	store   *appinv.BalanceStore
	serials *serial.Registry
	log     *logger.Logger
	now     func() time.Time
}

// NewUseCase construye el caso de uso de devoluciones.
func NewUseCase(store *appinv.BalanceStore, serials *serial.Registry, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:   store,
		serials: serials,
		log:     log.Named("returns"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ItemInput línea de una devolución.
type ItemInput struct {
	VariationID string
	Quantity    decimal.Decimal
	Condition   entity.ItemCondition
	UnitCost    decimal.Decimal
	SerialIDs   []int64
}

// CreateCustomerReturnInput devolución de un cliente sobre una venta.
type CreateCustomerReturnInput struct {
	BusinessID string
	LocationID string
	SaleID     string
	Notes      string
	ActorID    string
	Items      []ItemInput
}

// CreateSupplierReturnInput devolución a proveedor; WarrantyClaimID si nace de un reclamo de garantía.
type CreateSupplierReturnInput struct {
	BusinessID      string
	LocationID      string
	SupplierID      string
	WarrantyClaimID string
	Notes           string
	ActorID         string
	Items           []ItemInput
}

// CreateCustomerReturn registra la devolución en pending. No mueve stock.
func (uc *UseCase) CreateCustomerReturn(ctx context.Context, in CreateCustomerReturnInput) (*entity.CustomerReturn, error) {
	if in.SaleID == "" {
		return nil, domain.Validationf("sale_id es obligatorio")
	}
	for _, it := range in.Items {
		if !it.Condition.IsValid() {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, in.LocationID, fmt.Sprintf("condición desconocida: %q", it.Condition))
		}
	}
	now := uc.now()
	r := &entity.CustomerReturn{
		ID:         uuid.New().String(),
		BusinessID: in.BusinessID,
		LocationID: in.LocationID,
		SaleID:     in.SaleID,
		Status:     entity.ReturnPending,
		Notes:      in.Notes,
		CreatedBy:  in.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		items, err := uc.buildItems(ctx, tx.Repos, in.BusinessID, in.LocationID, in.Items)
		if err != nil {
			return err
		}
		r.Items = items
		return tx.Returns.CreateCustomerReturn(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("return_id", r.ID).Str("sale_id", r.SaleID).Int("items", len(r.Items)).Msg("devolución de cliente creada")
	return r, nil
}

// ApproveCustomerReturn aplica la devolución: lo revendible vuelve al stock (+cantidad), lo
// dañado o defectuoso deja una fila en cero para auditoría; las unidades pasan de sold a
// returned, damaged o defective. Aprobar dos veces es un conflicto.
func (uc *UseCase) ApproveCustomerReturn(ctx context.Context, businessID, returnID, actorID string) (*entity.CustomerReturn, error) {
	if actorID == "" {
		return nil, domain.Validationf("actor es obligatorio")
	}
	var out *entity.CustomerReturn
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		r, err := tx.Returns.GetCustomerReturnForUpdate(ctx, returnID)
		if err != nil {
			return fmt.Errorf("bloquear devolución: %w", err)
		}
		if r == nil || r.BusinessID != businessID {
			return domain.NotFoundf("devolución %s", returnID)
		}
		if r.Status != entity.ReturnPending {
			return &domain.StockError{Kind: domain.ErrConflict, Detail: fmt.Sprintf("la devolución %s ya está %s", r.ID, r.Status)}
		}

		for _, item := range sortedReturnItems(r.Items) {
			delta := decimal.Zero
			if item.Condition == entity.ConditionResellable {
				delta = item.Quantity
			}
			if _, err := uc.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
				BusinessID:    r.BusinessID,
				ProductID:     item.ProductID,
				VariationID:   item.VariationID,
				LocationID:    r.LocationID,
				Type:          entity.MovementCustomerReturn,
				Delta:         delta,
				UnitCost:      item.UnitCost,
				ReferenceType: entity.ReferenceCustomerReturn,
				ReferenceID:   r.ID,
				ActorID:       actorID,
				Notes:         fmt.Sprintf("venta %s, condición %s", r.SaleID, item.Condition),
			}); err != nil {
				return err
			}
			for _, id := range item.SerialIDs {
				if _, err := uc.serials.TransitionInTx(ctx, tx.Repos, id, inventory.SerialStatusForCondition(item.Condition), serial.TransitionInput{
					BusinessID:    r.BusinessID,
					MovementType:  entity.MovementCustomerReturn,
					ToLocationID:  r.LocationID,
					ExpectStatus:  entity.SerialSold,
					ReferenceType: entity.ReferenceCustomerReturn,
					ReferenceID:   r.ID,
					ActorID:       actorID,
				}); err != nil {
					return err
				}
			}
		}

		now := uc.now()
		r.Status = entity.ReturnApproved
		r.ApprovedBy = actorID
		r.ApprovedAt = &now
		r.UpdatedAt = now
		if err := tx.Returns.UpdateCustomerReturn(ctx, r); err != nil {
			return fmt.Errorf("actualizar devolución: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("return_id", returnID).Str("actor_id", actorID).Msg("devolución de cliente aprobada")
	return out, nil
}

// RejectCustomerReturn cierra la devolución sin efecto en stock.
func (uc *UseCase) RejectCustomerReturn(ctx context.Context, businessID, returnID, actorID, reason string) (*entity.CustomerReturn, error) {
	if actorID == "" {
		return nil, domain.Validationf("actor es obligatorio")
	}
	var out *entity.CustomerReturn
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		r, err := tx.Returns.GetCustomerReturnForUpdate(ctx, returnID)
		if err != nil {
			return fmt.Errorf("bloquear devolución: %w", err)
		}
		if r == nil || r.BusinessID != businessID {
			return domain.NotFoundf("devolución %s", returnID)
		}
		if r.Status != entity.ReturnPending {
			return &domain.StockError{Kind: domain.ErrConflict, Detail: fmt.Sprintf("la devolución %s ya está %s", r.ID, r.Status)}
		}
		r.Status = entity.ReturnRejected
		r.UpdatedAt = uc.now()
		if reason != "" {
			r.Notes = reason
		}
		if err := tx.Returns.UpdateCustomerReturn(ctx, r); err != nil {
			return fmt.Errorf("actualizar devolución: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("return_id", returnID).Str("actor_id", actorID).Msg("devolución de cliente rechazada")
	return out, nil
}

// CreateSupplierReturn registra la devolución a proveedor en pending.
func (uc *UseCase) CreateSupplierReturn(ctx context.Context, in CreateSupplierReturnInput) (*entity.SupplierReturn, error) {
	if in.SupplierID == "" {
		return nil, domain.Validationf("supplier_id es obligatorio")
	}
	for _, it := range in.Items {
		if it.Condition != "" && !it.Condition.IsValid() {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, in.LocationID, fmt.Sprintf("condición desconocida: %q", it.Condition))
		}
	}
	now := uc.now()
	r := &entity.SupplierReturn{
		ID:              uuid.New().String(),
		BusinessID:      in.BusinessID,
		LocationID:      in.LocationID,
		SupplierID:      in.SupplierID,
		WarrantyClaimID: in.WarrantyClaimID,
		Status:          entity.ReturnPending,
		Notes:           in.Notes,
		CreatedBy:       in.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		items, err := uc.buildItems(ctx, tx.Repos, in.BusinessID, in.LocationID, in.Items)
		if err != nil {
			return err
		}
		r.Items = items
		return tx.Returns.CreateSupplierReturn(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("return_id", r.ID).Str("supplier_id", r.SupplierID).Int("items", len(r.Items)).Msg("devolución a proveedor creada")
	return r, nil
}

// ApproveSupplierReturn descuenta siempre la cantidad en la bodega, sin importar la condición.
// Las unidades deben estar in_stock en esa bodega y pasan a warranty_return si la devolución
// nace de un reclamo de garantía, o a returned en otro caso.
func (uc *UseCase) ApproveSupplierReturn(ctx context.Context, businessID, returnID, actorID string) (*entity.SupplierReturn, error) {
	if actorID == "" {
		return nil, domain.Validationf("actor es obligatorio")
	}
	var out *entity.SupplierReturn
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		r, err := tx.Returns.GetSupplierReturnForUpdate(ctx, returnID)
		if err != nil {
			return fmt.Errorf("bloquear devolución: %w", err)
		}
		if r == nil || r.BusinessID != businessID {
			return domain.NotFoundf("devolución %s", returnID)
		}
		if r.Status != entity.ReturnPending {
			return &domain.StockError{Kind: domain.ErrConflict, Detail: fmt.Sprintf("la devolución %s ya está %s", r.ID, r.Status)}
		}
		serialTarget := entity.SerialReturned
		if r.WarrantyClaimID != "" {
			serialTarget = entity.SerialWarrantyReturn
		}

		for _, item := range sortedReturnItems(r.Items) {
			if _, err := uc.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
				BusinessID:    r.BusinessID,
				ProductID:     item.ProductID,
				VariationID:   item.VariationID,
				LocationID:    r.LocationID,
				Type:          entity.MovementSupplierReturn,
				Delta:         item.Quantity.Neg(),
				UnitCost:      item.UnitCost,
				ReferenceType: entity.ReferenceSupplierReturn,
				ReferenceID:   r.ID,
				ActorID:       actorID,
				Notes:         fmt.Sprintf("proveedor %s", r.SupplierID),
			}); err != nil {
				return err
			}
			for _, id := range item.SerialIDs {
				if _, err := uc.serials.TransitionInTx(ctx, tx.Repos, id, serialTarget, serial.TransitionInput{
					BusinessID:       r.BusinessID,
					MovementType:     entity.MovementSupplierReturn,
					ExpectLocationID: r.LocationID,
					ExpectStatus:     entity.SerialInStock,
					ReferenceType:    entity.ReferenceSupplierReturn,
					ReferenceID:      r.ID,
					ActorID:          actorID,
				}); err != nil {
					return err
				}
			}
		}

		now := uc.now()
		r.Status = entity.ReturnApproved
		r.ApprovedBy = actorID
		r.ApprovedAt = &now
		r.UpdatedAt = now
		if err := tx.Returns.UpdateSupplierReturn(ctx, r); err != nil {
			return fmt.Errorf("actualizar devolución: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("return_id", returnID).Str("actor_id", actorID).Msg("devolución a proveedor aprobada")
	return out, nil
}

// buildItems valida bodega, variaciones y unidades de una devolución nueva.
// Una variación aparece una sola vez por devolución (la referencia identifica su movimiento).
func (uc *UseCase) buildItems(ctx context.Context, repos repository.Repos, businessID, locationID string, in []ItemInput) ([]entity.ReturnItem, error) {
	if locationID == "" {
		return nil, domain.Validationf("location_id es obligatorio")
	}
	if len(in) == 0 {
		return nil, domain.Validationf("la devolución debe tener al menos un ítem")
	}
	loc, err := repos.Locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("buscar bodega: %w", err)
	}
	if loc == nil || loc.BusinessID != businessID {
		return nil, domain.NotFoundf("bodega %s", locationID)
	}

	seen := map[string]bool{}
	items := make([]entity.ReturnItem, 0, len(in))
	for _, it := range in {
		if seen[it.VariationID] {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, locationID, "variación repetida en la devolución")
		}
		seen[it.VariationID] = true
		if !it.Quantity.IsPositive() {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, locationID, "la cantidad debe ser mayor a cero")
		}
		if it.UnitCost.IsNegative() {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, locationID, "unit_cost no puede ser negativo")
		}
		variation, err := repos.Variations.GetByID(ctx, it.VariationID)
		if err != nil {
			return nil, fmt.Errorf("buscar variación: %w", err)
		}
		if variation == nil || variation.BusinessID != businessID {
			return nil, domain.NewStockError(domain.ErrNotFound, it.VariationID, locationID, "variación no encontrada")
		}
		if variation.Serialized && !it.Quantity.Equal(decimal.NewFromInt(int64(len(it.SerialIDs)))) {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, locationID,
				fmt.Sprintf("cantidad %s no coincide con %d unidades serializadas", it.Quantity, len(it.SerialIDs)))
		}
		if !variation.Serialized && len(it.SerialIDs) > 0 {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, locationID, "la variación no se controla por número de serie")
		}
		for _, id := range it.SerialIDs {
			unit, err := repos.Serials.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("buscar unidad: %w", err)
			}
			if unit == nil || unit.BusinessID != businessID || unit.VariationID != it.VariationID {
				return nil, domain.NewStockError(domain.ErrNotFound, it.VariationID, locationID, fmt.Sprintf("unidad %d no encontrada", id))
			}
		}
		items = append(items, entity.ReturnItem{
			ID:          uuid.New().String(),
			ProductID:   variation.ProductID,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			Condition:   it.Condition,
			UnitCost:    it.UnitCost,
			SerialIDs:   append([]int64(nil), it.SerialIDs...),
		})
	}
	return items, nil
}

func sortedReturnItems(items []entity.ReturnItem) []entity.ReturnItem {
	out := append([]entity.ReturnItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VariationID < out[j].VariationID })
	return out
}
