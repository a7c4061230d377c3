package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AdjustmentInput corrección manual de stock. Reason es obligatorio.
// Sin ReferenceID se genera uno nuevo y la solicitud deja de ser idempotente.
type AdjustmentInput struct {
	BusinessID  string
	VariationID string
	LocationID  string
	Delta       decimal.Decimal
	UnitCost    decimal.Decimal
	Reason      string
	ReferenceID string
	ActorID     string
}

// Adjust aplica un ajuste manual (tipo adjustment) a través del Balance Store.
func (s *BalanceStore) Adjust(ctx context.Context, in AdjustmentInput) (*ApplyResult, error) {
	if in.Reason == "" {
		return nil, domain.NewStockError(domain.ErrValidation, in.VariationID, in.LocationID, "los ajustes requieren un motivo")
	}
	ref := in.ReferenceID
	if ref == "" {
		ref = uuid.New().String()
	}
	return s.ApplyDelta(ctx, MovementRequest{
		BusinessID:    in.BusinessID,
		VariationID:   in.VariationID,
		LocationID:    in.LocationID,
		Type:          entity.MovementAdjustment,
		Delta:         in.Delta,
		UnitCost:      in.UnitCost,
		ReferenceType: entity.ReferenceAdjustment,
		ReferenceID:   ref,
		ActorID:       in.ActorID,
		Reason:        in.Reason,
	})
}

// CountInput resultado de una toma física de inventario.
type CountInput struct {
	BusinessID  string
	CountID     string
	VariationID string
	LocationID  string
	Counted     decimal.Decimal
	UnitCost    decimal.Decimal
	Reason      string
	ActorID     string
}

// Count fija el saldo en la cantidad contada: calcula delta = contado - actual con la fila
// bloqueada y registra un único ajuste. Sin diferencia el ajuste queda en cero, así el count_id
// ya aplicado no vuelve a mover stock si se repite.
func (s *BalanceStore) Count(ctx context.Context, in CountInput) (*ApplyResult, error) {
	if in.CountID == "" {
		return nil, domain.Validationf("count_id es obligatorio")
	}
	if in.Counted.IsNegative() {
		return nil, domain.NewStockError(domain.ErrValidation, in.VariationID, in.LocationID, "la cantidad contada no puede ser negativa")
	}
	reason := in.Reason
	if reason == "" {
		reason = "toma física " + in.CountID
	}
	req := MovementRequest{
		BusinessID:    in.BusinessID,
		VariationID:   in.VariationID,
		LocationID:    in.LocationID,
		Type:          entity.MovementAdjustment,
		UnitCost:      in.UnitCost,
		ReferenceType: entity.ReferenceStockCount,
		ReferenceID:   in.CountID,
		ActorID:       in.ActorID,
		Reason:        reason,
	}

	var res *ApplyResult
	err := s.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		if _, err := s.checkCatalog(ctx, tx.Repos, in.BusinessID, in.VariationID, in.LocationID); err != nil {
			return err
		}
		existing, err := tx.Movements.FindByKey(ctx, req.Key())
		if err != nil {
			return fmt.Errorf("buscar conteo existente: %w", err)
		}
		if existing != nil {
			tx.replayed = append(tx.replayed, existing.Type)
			res = &ApplyResult{Balance: existing.BalanceAfter, MovementID: existing.ID, Replayed: true, Movement: existing}
			return nil
		}
		balance, err := tx.Balances.GetForUpdate(ctx, in.VariationID, in.LocationID)
		if err != nil {
			return fmt.Errorf("bloquear saldo: %w", err)
		}
		req.Delta = in.Counted.Sub(balance.Quantity)
		res, err = s.ApplyDeltaInTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Movement != nil && !res.Replayed {
		s.log.Info().
			Str("count_id", in.CountID).
			Str("variation_id", in.VariationID).
			Str("location_id", in.LocationID).
			Str("delta", res.Movement.Delta.String()).
			Msg("toma física aplicada")
	}
	return res, nil
}
