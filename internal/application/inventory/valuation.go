package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// ValuationEngine valora el inventario reproduciendo el libro; las capas de costo son una
// proyección y nunca se escriben por separado.
type ValuationEngine struct {
	store *BalanceStore
	cache ValuationCache
	log   *logger.Logger
}

// NewValuationEngine construye el motor de valuación. cache puede ser nil.
func NewValuationEngine(store *BalanceStore, cache ValuationCache, log *logger.Logger) *ValuationEngine {
	if cache == nil {
		cache = NoopValuationCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ValuationEngine{store: store, cache: cache, log: log.Named("valuation")}
}

func (v *ValuationEngine) method(m inventory.ValuationMethod) (inventory.ValuationMethod, error) {
	if m == "" {
		return v.store.policy.DefaultMethod, nil
	}
	if !m.IsValid() {
		return "", domain.Validationf("método de valuación desconocido: %q", m)
	}
	return m, nil
}

// Project capas vigentes y costo consumido de un par con el método indicado.
func (v *ValuationEngine) Project(ctx context.Context, variationID, locationID string, method inventory.ValuationMethod) (inventory.Projection, error) {
	method, err := v.method(method)
	if err != nil {
		return inventory.Projection{}, err
	}
	var p inventory.Projection
	err = v.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		var perr error
		p, perr = projectPair(ctx, tx.Repos, variationID, locationID, method)
		return perr
	})
	return p, err
}

// TotalValue valor total de lo que queda en capas para el par.
func (v *ValuationEngine) TotalValue(ctx context.Context, variationID, locationID string, method inventory.ValuationMethod) (decimal.Decimal, error) {
	if variationID == "" || locationID == "" {
		return decimal.Zero, domain.Validationf("variation_id y location_id son obligatorios")
	}
	p, err := v.Project(ctx, variationID, locationID, method)
	if err != nil {
		return decimal.Zero, err
	}
	return p.TotalValue(), nil
}

// Query valoriza todos los pares del negocio (o de una bodega si locationID no está vacío).
// La cantidad sale del Balance Store; el costo unitario de la proyección del libro.
func (v *ValuationEngine) Query(ctx context.Context, businessID, locationID string, method inventory.ValuationMethod) ([]dto.ValuationLine, error) {
	if businessID == "" {
		return nil, domain.Validationf("business_id es obligatorio")
	}
	method, err := v.method(method)
	if err != nil {
		return nil, err
	}

	var lines []dto.ValuationLine
	err = v.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		if locationID != "" {
			loc, err := tx.Locations.GetByID(ctx, locationID)
			if err != nil {
				return fmt.Errorf("buscar bodega: %w", err)
			}
			if loc == nil || loc.BusinessID != businessID {
				return domain.NotFoundf("bodega %s", locationID)
			}
		}
		watermark, err := tx.Movements.Watermark(ctx, locationID)
		if err != nil {
			return fmt.Errorf("leer marca de agua: %w", err)
		}
		key := fmt.Sprintf("valuation:%s:%s:%s:%d", businessID, locationID, method, watermark)
		if cached, ok, err := v.cache.Get(ctx, key); err != nil {
			v.log.Warn().Err(err).Str("key", key).Msg("caché de valuación no disponible")
		} else if ok {
			lines = cached
			return nil
		}

		lines, err = v.compute(ctx, tx.Repos, businessID, locationID, method)
		if err != nil {
			return err
		}
		if err := v.cache.Set(ctx, key, lines); err != nil {
			v.log.Warn().Err(err).Str("key", key).Msg("no se pudo guardar la valuación en caché")
		}
		return nil
	})
	return lines, err
}

func (v *ValuationEngine) compute(ctx context.Context, repos repository.Repos, businessID, locationID string, method inventory.ValuationMethod) ([]dto.ValuationLine, error) {
	balances, err := repos.Balances.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("listar saldos: %w", err)
	}
	owned := map[string]bool{}
	lines := make([]dto.ValuationLine, 0, len(balances))
	for _, b := range balances {
		ok, seen := owned[b.VariationID]
		if !seen {
			variation, err := repos.Variations.GetByID(ctx, b.VariationID)
			if err != nil {
				return nil, fmt.Errorf("buscar variación: %w", err)
			}
			ok = variation != nil && variation.BusinessID == businessID
			owned[b.VariationID] = ok
		}
		if !ok {
			continue
		}
		p, err := projectPair(ctx, repos, b.VariationID, b.LocationID, method)
		if err != nil {
			return nil, err
		}
		unitCost := p.UnitCost()
		total := decimal.Zero
		if b.Quantity.IsPositive() {
			total = b.Quantity.Mul(unitCost)
		}
		lines = append(lines, dto.ValuationLine{
			VariationID: b.VariationID,
			LocationID:  b.LocationID,
			Method:      string(method),
			Quantity:    b.Quantity,
			UnitCost:    unitCost.Round(4),
			TotalValue:  total.Round(2),
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].LocationID != lines[j].LocationID {
			return lines[i].LocationID < lines[j].LocationID
		}
		return lines[i].VariationID < lines[j].VariationID
	})
	return lines, nil
}

// OutboundUnitCost costo unitario que tendría una salida de qty unidades del par con el método
// por defecto. Se usa para fijar el costo de un traslado al enviarlo.
func (v *ValuationEngine) OutboundUnitCost(ctx context.Context, repos repository.Repos, variationID, locationID string, qty decimal.Decimal) (decimal.Decimal, error) {
	return v.store.outboundCost(ctx, repos, variationID, locationID, qty)
}

func (s *BalanceStore) outboundCost(ctx context.Context, repos repository.Repos, variationID, locationID string, qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, nil
	}
	method := s.policy.DefaultMethod
	p, err := projectPair(ctx, repos, variationID, locationID, method)
	if err != nil {
		return decimal.Zero, err
	}
	_, consumed, short := inventory.ConsumeLayers(p.Layers, qty, method)
	costed := qty.Sub(short)
	if !costed.IsPositive() {
		return decimal.Zero, nil
	}
	return consumed.Div(costed).Round(4), nil
}

// averageCost costo promedio ponderado de lo que queda en capas; cero si no hay capas.
func (s *BalanceStore) averageCost(ctx context.Context, repos repository.Repos, variationID, locationID string) (decimal.Decimal, error) {
	p, err := projectPair(ctx, repos, variationID, locationID, inventory.ValuationWeightedAverage)
	if err != nil {
		return decimal.Zero, err
	}
	return p.UnitCost().Round(4), nil
}

func projectPair(ctx context.Context, repos repository.Repos, variationID, locationID string, method inventory.ValuationMethod) (inventory.Projection, error) {
	movements, err := repos.Movements.ListByPair(ctx, variationID, locationID)
	if err != nil {
		return inventory.Projection{}, fmt.Errorf("leer movimientos: %w", err)
	}
	return inventory.Project(movements, method), nil
}
