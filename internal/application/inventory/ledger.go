package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Ledger consultas y reparaciones sobre el libro de movimientos.
// Nunca corrige automáticamente: las discrepancias se reportan y un operador aprueba la corrección.
type Ledger struct {
	store   *BalanceStore
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewLedger construye el servicio del libro sobre el Balance Store.
func NewLedger(store *BalanceStore, log *logger.Logger, m *metrics.Metrics) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{store: store, log: log.Named("ledger"), metrics: m}
}

// Reconcile compara el saldo guardado contra Σdelta y recorre la cadena de BalanceAfter.
// Con discrepancia devuelve el reporte (con la corrección propuesta) y un error ErrConsistency.
func (l *Ledger) Reconcile(ctx context.Context, variationID, locationID string) (*entity.ConsistencyReport, error) {
	return l.reconcile(ctx, "", variationID, locationID)
}

// ReconcileInBusiness igual que Reconcile, exigiendo que variación y bodega sean del negocio.
func (l *Ledger) ReconcileInBusiness(ctx context.Context, businessID, variationID, locationID string) (*entity.ConsistencyReport, error) {
	if businessID == "" {
		return nil, domain.Validationf("business_id es obligatorio")
	}
	return l.reconcile(ctx, businessID, variationID, locationID)
}

func (l *Ledger) reconcile(ctx context.Context, businessID, variationID, locationID string) (*entity.ConsistencyReport, error) {
	if variationID == "" || locationID == "" {
		return nil, domain.Validationf("variation_id y location_id son obligatorios")
	}
	var report *entity.ConsistencyReport
	err := l.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		if err := l.checkPair(ctx, tx.Repos, businessID, variationID, locationID); err != nil {
			return err
		}
		var err error
		report, err = l.inspect(ctx, tx.Repos, variationID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		l.metrics.Discrepancy()
		l.log.Warn().
			Str("variation_id", variationID).
			Str("location_id", locationID).
			Str("stored", report.StoredBalance.String()).
			Str("ledger_sum", report.LedgerSum.String()).
			Int64("broken_chain_seq", report.BrokenChainSeq).
			Msg("saldo inconsistente con el libro")
		return report, domain.NewStockError(domain.ErrConsistency, variationID, locationID,
			fmt.Sprintf("saldo %s, libro %s", report.StoredBalance, report.LedgerSum))
	}
	return report, nil
}

// checkPair variación y bodega deben existir; con businessID además deben ser del negocio.
func (l *Ledger) checkPair(ctx context.Context, repos repository.Repos, businessID, variationID, locationID string) error {
	if businessID != "" {
		_, err := l.store.checkCatalog(ctx, repos, businessID, variationID, locationID)
		return err
	}
	variation, err := repos.Variations.GetByID(ctx, variationID)
	if err != nil {
		return fmt.Errorf("buscar variación: %w", err)
	}
	if variation == nil {
		return domain.NewStockError(domain.ErrNotFound, variationID, locationID, "variación no encontrada")
	}
	location, err := repos.Locations.GetByID(ctx, locationID)
	if err != nil {
		return fmt.Errorf("buscar bodega: %w", err)
	}
	if location == nil {
		return domain.NewStockError(domain.ErrNotFound, variationID, locationID, "bodega no encontrada")
	}
	return nil
}

// LocationReconciliation reportes de todos los pares de una bodega.
type LocationReconciliation struct {
	Location *entity.Location
	Reports  []*entity.ConsistencyReport
}

// ReconcileLocation concilia todos los saldos de una bodega del negocio. Devuelve todos los
// reportes; las discrepancias no abortan el recorrido.
func (l *Ledger) ReconcileLocation(ctx context.Context, businessID, locationID string) (*LocationReconciliation, error) {
	if locationID == "" {
		return nil, domain.Validationf("location_id es obligatorio")
	}
	var reports []*entity.ConsistencyReport
	var location *entity.Location
	err := l.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		reports = nil
		var err error
		location, err = tx.Locations.GetByID(ctx, locationID)
		if err != nil {
			return fmt.Errorf("buscar bodega: %w", err)
		}
		if location == nil || location.BusinessID != businessID {
			return domain.NotFoundf("bodega %s", locationID)
		}
		balances, err := tx.Balances.ListByLocation(ctx, locationID)
		if err != nil {
			return fmt.Errorf("listar saldos: %w", err)
		}
		for _, b := range balances {
			r, err := l.inspect(ctx, tx.Repos, b.VariationID, b.LocationID)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	bad := 0
	for _, r := range reports {
		if !r.Consistent {
			bad++
			l.metrics.Discrepancy()
		}
	}
	if bad > 0 {
		l.log.Warn().Str("location_id", locationID).Int("inconsistent", bad).Int("checked", len(reports)).Msg("conciliación de bodega con diferencias")
	}
	return &LocationReconciliation{Location: location, Reports: reports}, nil
}

// inspect arma el reporte de un par. Un movimiento correctivo re-ancla la cadena y da por
// revisadas las rupturas anteriores.
func (l *Ledger) inspect(ctx context.Context, repos repository.Repos, variationID, locationID string) (*entity.ConsistencyReport, error) {
	balance, err := repos.Balances.Get(ctx, variationID, locationID)
	if err != nil {
		return nil, fmt.Errorf("leer saldo: %w", err)
	}
	movements, err := repos.Movements.ListByPair(ctx, variationID, locationID)
	if err != nil {
		return nil, fmt.Errorf("leer movimientos: %w", err)
	}

	sum := decimal.Zero
	running := decimal.Zero
	var broken int64
	for _, m := range movements {
		sum = sum.Add(m.Delta)
		if m.Corrective {
			running = m.BalanceAfter
			broken = 0
			continue
		}
		running = running.Add(m.Delta)
		if !running.Equal(m.BalanceAfter) {
			if broken == 0 {
				broken = m.Seq
			}
			running = m.BalanceAfter
		}
	}

	r := &entity.ConsistencyReport{
		VariationID:    variationID,
		LocationID:     locationID,
		StoredBalance:  balance.Quantity,
		LedgerSum:      sum,
		Difference:     balance.Quantity.Sub(sum),
		MovementCount:  len(movements),
		BrokenChainSeq: broken,
		CheckedAt:      l.store.now(),
	}
	r.Consistent = r.Difference.IsZero() && broken == 0
	if !r.Consistent {
		r.Proposed = &entity.ProposedCorrection{
			Resolution: entity.ResolveTrustBalance,
			Delta:      r.Difference,
			Note:       fmt.Sprintf("ajuste correctivo de %s para igualar el libro al saldo guardado", r.Difference),
		}
	}
	return r, nil
}

// CorrectionApproval aprobación explícita de una corrección propuesta por Reconcile.
type CorrectionApproval struct {
	BusinessID         string
	VariationID        string
	LocationID         string
	Resolution         entity.CorrectionResolution
	ExpectedDifference decimal.Decimal
	ActorID            string
	Reason             string
}

// ApproveCorrection aplica la resolución elegida por el operador. Vuelve a conciliar dentro de la
// transacción y rechaza con ErrConflict si la diferencia ya no es la que se aprobó.
func (l *Ledger) ApproveCorrection(ctx context.Context, in CorrectionApproval) (*entity.StockMovement, error) {
	if in.VariationID == "" || in.LocationID == "" || in.ActorID == "" {
		return nil, domain.Validationf("variation_id, location_id y actor son obligatorios")
	}
	if in.Reason == "" {
		return nil, domain.Validationf("la corrección requiere un motivo")
	}
	if in.Resolution != entity.ResolveTrustBalance && in.Resolution != entity.ResolveTrustLedger {
		return nil, domain.Validationf("resolución desconocida: %q", in.Resolution)
	}

	var applied *entity.StockMovement
	err := l.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		variation, err := l.store.checkCatalog(ctx, tx.Repos, in.BusinessID, in.VariationID, in.LocationID)
		if err != nil {
			return err
		}
		balance, err := tx.Balances.GetForUpdate(ctx, in.VariationID, in.LocationID)
		if err != nil {
			return fmt.Errorf("bloquear saldo: %w", err)
		}
		report, err := l.inspect(ctx, tx.Repos, in.VariationID, in.LocationID)
		if err != nil {
			return err
		}
		if report.Consistent {
			return domain.NewStockError(domain.ErrConflict, in.VariationID, in.LocationID, "el par ya está conciliado")
		}
		if !report.Difference.Equal(in.ExpectedDifference) {
			return domain.NewStockError(domain.ErrConflict, in.VariationID, in.LocationID,
				fmt.Sprintf("la diferencia cambió: aprobada %s, actual %s", in.ExpectedDifference, report.Difference))
		}

		now := l.store.now()
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			BusinessID:    in.BusinessID,
			ProductID:     variation.ProductID,
			VariationID:   in.VariationID,
			LocationID:    in.LocationID,
			Type:          entity.MovementAdjustment,
			ReferenceType: entity.ReferenceReconciliation,
			ReferenceID:   uuid.New().String(),
			ActorID:       in.ActorID,
			Reason:        in.Reason,
			Corrective:    true,
			CreatedAt:     now,
		}
		switch in.Resolution {
		case entity.ResolveTrustBalance:
			mov.Delta = report.Difference
			mov.BalanceAfter = balance.Quantity
			mov.Notes = "el libro se ajusta al saldo guardado"
		case entity.ResolveTrustLedger:
			expected := balance.Version
			balance.Quantity = report.LedgerSum
			balance.UpdatedAt = now
			if err := tx.Balances.UpdateVersioned(ctx, balance, expected); err != nil {
				return err
			}
			mov.Delta = decimal.Zero
			mov.BalanceAfter = report.LedgerSum
			mov.Notes = fmt.Sprintf("saldo corregido de %s a %s", report.StoredBalance, report.LedgerSum)
		}
		// Única escritura del libro fuera de ApplyDeltaInTx: la fila del saldo ya está bloqueada y
		// el movimiento re-ancla la cadena, así que no pasa por idempotencia ni por la política.
		if err := l.store.recordMovement(ctx, tx, mov); err != nil {
			return err
		}
		applied = mov
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Warn().
		Str("variation_id", in.VariationID).
		Str("location_id", in.LocationID).
		Str("resolution", string(in.Resolution)).
		Str("actor_id", in.ActorID).
		Msg("corrección de conciliación aplicada")
	return applied, nil
}

// ListMovements historial de un par del negocio, más recientes primero.
func (l *Ledger) ListMovements(ctx context.Context, businessID, variationID, locationID string, limit, offset int) ([]*entity.StockMovement, error) {
	if variationID == "" || locationID == "" {
		return nil, domain.Validationf("variation_id y location_id son obligatorios")
	}
	var out []*entity.StockMovement
	err := l.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		if _, err := l.store.checkCatalog(ctx, tx.Repos, businessID, variationID, locationID); err != nil {
			return err
		}
		var err error
		out, err = tx.Movements.ListByPairPage(ctx, variationID, locationID, limit, offset)
		return err
	})
	return out, err
}

// BackfillTransfer repara un traslado ya enviado al que le faltan filas del libro: aplica los
// transfer_out faltantes en origen y, si está completado, los transfer_in faltantes en destino.
// Las filas nuevas quedan marcadas como correctivas y pueden dejar saldo negativo.
func (l *Ledger) BackfillTransfer(ctx context.Context, businessID, transferID, actorID string) (*entity.BackfillReport, error) {
	if transferID == "" || actorID == "" {
		return nil, domain.Validationf("transfer_id y actor son obligatorios")
	}
	var report *entity.BackfillReport
	err := l.store.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		t, err := tx.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return fmt.Errorf("bloquear traslado: %w", err)
		}
		if t == nil || t.BusinessID != businessID {
			return domain.NotFoundf("traslado %s", transferID)
		}
		if !inventory.StockDeducted(t.Status) {
			return &domain.StockError{Kind: domain.ErrInvalidTransition, Detail: fmt.Sprintf("el traslado está en %s; no tiene movimientos que reparar", t.Status)}
		}

		report = &entity.BackfillReport{ReferenceType: entity.ReferenceTransfer, ReferenceID: t.ID, GeneratedAt: l.store.now()}
		for _, item := range sortedItems(t.Items) {
			reqs := []MovementRequest{{
				Type:       entity.MovementTransferOut,
				LocationID: t.FromLocationID,
				Delta:      item.Quantity.Neg(),
				Notes:      "transfer_out faltante aplicado por reparación",
			}}
			if t.Status == entity.TransferCompleted {
				qty := item.Quantity
				if item.ReceivedQuantity != nil && !item.ReceivedQuantity.IsZero() {
					qty = *item.ReceivedQuantity
				}
				reqs = append(reqs, MovementRequest{
					Type:       entity.MovementTransferIn,
					LocationID: t.ToLocationID,
					Delta:      qty,
					Notes:      "transfer_in faltante aplicado por reparación",
				})
			}
			for _, r := range reqs {
				r.BusinessID = t.BusinessID
				r.ProductID = item.ProductID
				r.VariationID = item.VariationID
				r.UnitCost = item.UnitCost
				r.ReferenceType = entity.ReferenceTransfer
				r.ReferenceID = t.ID
				r.ActorID = actorID
				r.Corrective = true
				r.force = true
				if r.Delta.IsZero() {
					continue
				}
				existing, err := tx.Movements.FindByKey(ctx, r.Key())
				if err != nil {
					return fmt.Errorf("buscar movimiento del traslado: %w", err)
				}
				if existing != nil {
					report.AlreadyFine++
					continue
				}
				res, err := l.store.ApplyDeltaInTx(ctx, tx, r)
				if err != nil {
					return err
				}
				report.Applied = append(report.Applied, *res.Movement)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(report.Applied) > 0 {
		negative := 0
		for _, m := range report.Applied {
			if m.BalanceAfter.IsNegative() {
				negative++
			}
		}
		l.log.Warn().
			Str("transfer_id", transferID).
			Int("applied", len(report.Applied)).
			Int("negative_balances", negative).
			Msg("traslado reparado con movimientos correctivos")
	}
	return report, nil
}

// sortedItems copia de los ítems en orden de variación (orden de bloqueo determinístico).
func sortedItems(items []entity.TransferItem) []entity.TransferItem {
	out := make([]entity.TransferItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VariationID < out[j].VariationID })
	return out
}
