package serial

import (
	"context"
	"fmt"
	"strings"
	"time"

	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Registry registro de unidades serializadas. Toda transición deja exactamente un
// SerialMovement con el ID persistido de la unidad.
type Registry struct {
	store   *appinv.BalanceStore
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewRegistry construye el registro sobre el Balance Store (para la unidad atómica).
func NewRegistry(store *appinv.BalanceStore, log *logger.Logger, m *metrics.Metrics) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{store: store, log: log.Named("serial_registry"), metrics: m}
}

// RegisterInput recepción de unidades nuevas en una bodega.
type RegisterInput struct {
	BusinessID    string
	VariationID   string
	LocationID    string
	SupplierID    string
	PurchaseCost  decimal.Decimal
	ReferenceType string
	ReferenceID   string
	ActorID       string
	SerialNumbers []string
	WarrantyStart *time.Time
	WarrantyEnd   *time.Time
}

// Register crea las unidades en in_stock, suma el stock con un movimiento purchase y
// anota un SerialMovement purchase por unidad, todo en una transacción.
func (r *Registry) Register(ctx context.Context, in RegisterInput) ([]*entity.SerialUnit, error) {
	if len(in.SerialNumbers) == 0 {
		return nil, domain.Validationf("se requiere al menos un número de serie")
	}
	if in.ReferenceType == "" || in.ReferenceID == "" {
		return nil, domain.Validationf("reference_type y reference_id son obligatorios")
	}
	seen := make(map[string]bool, len(in.SerialNumbers))
	for i, sn := range in.SerialNumbers {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			return nil, domain.Validationf("número de serie vacío en la posición %d", i)
		}
		if seen[sn] {
			return nil, domain.Validationf("número de serie repetido: %s", sn)
		}
		seen[sn] = true
		in.SerialNumbers[i] = sn
	}
	if in.WarrantyStart != nil && in.WarrantyEnd != nil && in.WarrantyEnd.Before(*in.WarrantyStart) {
		return nil, domain.Validationf("la garantía termina antes de empezar")
	}

	var units []*entity.SerialUnit
	err := r.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		units = nil
		variation, err := tx.Variations.GetByID(ctx, in.VariationID)
		if err != nil {
			return fmt.Errorf("buscar variación: %w", err)
		}
		if variation == nil || variation.BusinessID != in.BusinessID {
			return domain.NewStockError(domain.ErrNotFound, in.VariationID, in.LocationID, "variación no encontrada")
		}
		if !variation.Serialized {
			return domain.NewStockError(domain.ErrValidation, in.VariationID, in.LocationID, "la variación no se controla por número de serie")
		}

		if _, err := r.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
			BusinessID:    in.BusinessID,
			ProductID:     variation.ProductID,
			VariationID:   in.VariationID,
			LocationID:    in.LocationID,
			Type:          entity.MovementPurchase,
			Delta:         decimal.NewFromInt(int64(len(in.SerialNumbers))),
			UnitCost:      in.PurchaseCost,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			ActorID:       in.ActorID,
		}); err != nil {
			return err
		}

		for _, sn := range in.SerialNumbers {
			existing, err := tx.Serials.GetBySerialNumber(ctx, in.BusinessID, sn)
			if err != nil {
				return fmt.Errorf("buscar número de serie: %w", err)
			}
			if existing != nil {
				return domain.NewStockError(domain.ErrConflict, in.VariationID, in.LocationID, fmt.Sprintf("número de serie %s ya registrado", sn))
			}
			unit := &entity.SerialUnit{
				SerialNumber:      sn,
				BusinessID:        in.BusinessID,
				ProductID:         variation.ProductID,
				VariationID:       in.VariationID,
				Status:            entity.SerialInStock,
				CurrentLocationID: in.LocationID,
				SupplierID:        in.SupplierID,
				PurchaseCost:      in.PurchaseCost,
				WarrantyStart:     in.WarrantyStart,
				WarrantyEnd:       in.WarrantyEnd,
			}
			if err := tx.Serials.Create(ctx, unit); err != nil {
				return fmt.Errorf("crear unidad %s: %w", sn, err)
			}
			// El movimiento usa el ID asignado por el repositorio, nunca un valor provisional
			if err := tx.Serials.CreateMovement(ctx, &entity.SerialMovement{
				SerialNumberID: unit.ID,
				MovementType:   entity.MovementPurchase,
				ToLocationID:   in.LocationID,
				ToStatus:       entity.SerialInStock,
				ReferenceType:  in.ReferenceType,
				ReferenceID:    in.ReferenceID,
				ActorID:        in.ActorID,
			}); err != nil {
				return fmt.Errorf("registrar movimiento de la unidad %s: %w", sn, err)
			}
			units = append(units, unit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("variation_id", in.VariationID).Str("location_id", in.LocationID).Int("units", len(units)).Msg("unidades serializadas registradas")
	return units, nil
}

// TransitionInput contexto de una transición de unidad.
type TransitionInput struct {
	BusinessID string
	// MovementType vacío se deduce de la transición.
	MovementType entity.MovementType
	// ToLocationID nueva ubicación; vacío conserva la actual.
	ToLocationID string
	// ExpectLocationID / ExpectStatus exigen que la unidad esté ahí y en ese estado.
	ExpectLocationID string
	ExpectStatus     entity.SerialStatus
	ReferenceType    string
	ReferenceID      string
	ActorID          string

	// direct marca las transiciones pedidas fuera de un traslado.
	direct bool
}

// Transition cambia el estado de una unidad en su propia transacción. Las transiciones hacia o
// desde in_transit pertenecen a los traslados y se rechazan aquí.
func (r *Registry) Transition(ctx context.Context, serialID int64, to entity.SerialStatus, in TransitionInput) (*entity.SerialUnit, error) {
	in.direct = true
	var unit *entity.SerialUnit
	err := r.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		unit, err = r.TransitionInTx(ctx, tx.Repos, serialID, to, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Int64("serial_id", serialID).Str("status", string(to)).Msg("transición de unidad serializada")
	return unit, nil
}

// TransitionInTx transición dentro de la transacción de un orquestador (traslados, devoluciones).
func (r *Registry) TransitionInTx(ctx context.Context, repos repository.Repos, serialID int64, to entity.SerialStatus, in TransitionInput) (*entity.SerialUnit, error) {
	if serialID <= 0 {
		return nil, domain.Validationf("serial_id inválido: %d", serialID)
	}
	if !to.IsValid() {
		return nil, domain.Validationf("estado de unidad desconocido: %q", to)
	}
	unit, err := repos.Serials.GetForUpdate(ctx, serialID)
	if err != nil {
		return nil, fmt.Errorf("bloquear unidad: %w", err)
	}
	if unit == nil || unit.BusinessID != in.BusinessID {
		return nil, domain.NotFoundf("unidad serializada %d", serialID)
	}
	if in.ExpectLocationID != "" && unit.CurrentLocationID != in.ExpectLocationID {
		return nil, domain.NewStockError(domain.ErrValidation, unit.VariationID, in.ExpectLocationID,
			fmt.Sprintf("la unidad %s está en %s", unit.SerialNumber, unit.CurrentLocationID))
	}
	if in.ExpectStatus != "" && unit.Status != in.ExpectStatus {
		return nil, domain.NewStockError(domain.ErrInvalidTransition, unit.VariationID, unit.CurrentLocationID,
			fmt.Sprintf("la unidad %s está en %s, se esperaba %s", unit.SerialNumber, unit.Status, in.ExpectStatus))
	}
	from := unit.Status
	if !inventory.CanTransitionSerial(from, to) {
		return nil, domain.NewStockError(domain.ErrInvalidTransition, unit.VariationID, unit.CurrentLocationID,
			fmt.Sprintf("unidad %s: %s -> %s", unit.SerialNumber, from, to))
	}
	if in.direct && inventory.TransferOwnedSerial(from, to) {
		return nil, domain.NewStockError(domain.ErrInvalidTransition, unit.VariationID, unit.CurrentLocationID,
			fmt.Sprintf("unidad %s: %s -> %s solo ocurre al enviar o recibir un traslado", unit.SerialNumber, from, to))
	}
	if in.ToLocationID != "" && in.ToLocationID != unit.CurrentLocationID {
		loc, err := repos.Locations.GetByID(ctx, in.ToLocationID)
		if err != nil {
			return nil, fmt.Errorf("buscar bodega: %w", err)
		}
		if loc == nil || loc.BusinessID != in.BusinessID {
			return nil, domain.NewStockError(domain.ErrNotFound, unit.VariationID, in.ToLocationID, "bodega no encontrada")
		}
	}

	fromLocation := unit.CurrentLocationID
	unit.Status = to
	if in.ToLocationID != "" {
		unit.CurrentLocationID = in.ToLocationID
	}
	if err := repos.Serials.Update(ctx, unit); err != nil {
		return nil, fmt.Errorf("actualizar unidad: %w", err)
	}
	movementType := in.MovementType
	if movementType == "" {
		movementType = inventory.SerialMovementType(from, to)
	}
	if err := repos.Serials.CreateMovement(ctx, &entity.SerialMovement{
		SerialNumberID: unit.ID,
		MovementType:   movementType,
		FromLocationID: fromLocation,
		ToLocationID:   unit.CurrentLocationID,
		FromStatus:     from,
		ToStatus:       to,
		ReferenceType:  in.ReferenceType,
		ReferenceID:    in.ReferenceID,
		ActorID:        in.ActorID,
	}); err != nil {
		return nil, fmt.Errorf("registrar movimiento de la unidad: %w", err)
	}
	r.metrics.SerialTransition(string(to))
	return unit, nil
}

// Get unidad por ID dentro del negocio.
func (r *Registry) Get(ctx context.Context, businessID string, serialID int64) (*entity.SerialUnit, error) {
	var unit *entity.SerialUnit
	err := r.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		unit, err = tx.Serials.GetByID(ctx, serialID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if unit == nil || unit.BusinessID != businessID {
		return nil, domain.NotFoundf("unidad serializada %d", serialID)
	}
	return unit, nil
}

// GetBySerialNumber busca una unidad por su número de serie.
func (r *Registry) GetBySerialNumber(ctx context.Context, businessID, serialNumber string) (*entity.SerialUnit, error) {
	var unit *entity.SerialUnit
	err := r.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		unit, err = tx.Serials.GetBySerialNumber(ctx, businessID, strings.TrimSpace(serialNumber))
		return err
	})
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.NotFoundf("número de serie %s", serialNumber)
	}
	return unit, nil
}

// History rastro completo de la unidad, en orden cronológico.
func (r *Registry) History(ctx context.Context, businessID string, serialID int64) ([]*entity.SerialMovement, error) {
	if _, err := r.Get(ctx, businessID, serialID); err != nil {
		return nil, err
	}
	var out []*entity.SerialMovement
	err := r.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		out, err = tx.Serials.ListMovements(ctx, serialID)
		return err
	})
	return out, err
}
