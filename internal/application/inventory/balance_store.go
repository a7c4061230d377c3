package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
)

// BalanceStore es el único escritor de saldos: cada cambio de stock pasa por ApplyDelta
// y queda registrado en el libro de movimientos dentro de la misma transacción.
type BalanceStore struct {
	txRunner  repository.TxRunner
	publisher MovementPublisher
	policy    Policy
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewBalanceStore construye el Balance Store. publisher y m pueden ser nil.
func NewBalanceStore(txRunner repository.TxRunner, publisher MovementPublisher, policy Policy, log *logger.Logger, m *metrics.Metrics) *BalanceStore {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BalanceStore{
		txRunner:  txRunner,
		publisher: publisher,
		policy:    policy,
		log:       log.Named("balance_store"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Policy devuelve la política vigente.
func (s *BalanceStore) Policy() Policy {
	return s.policy
}

// MovementRequest solicitud de cambio de stock para un par variación/bodega.
type MovementRequest struct {
	BusinessID    string
	ProductID     string // opcional; se toma de la variación
	VariationID   string
	LocationID    string
	Type          entity.MovementType
	Delta         decimal.Decimal
	UnitCost      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Reason        string
	Notes         string
	AllowNegative bool
	Corrective    bool

	// force omite la política de negativos; solo lo usan los procesos de reparación.
	force bool
}

// Key clave de idempotencia de la solicitud.
func (r MovementRequest) Key() entity.MovementKey {
	return entity.MovementKey{
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		Type:          r.Type,
		VariationID:   r.VariationID,
		LocationID:    r.LocationID,
	}
}

// ApplyResult resultado de ApplyDelta. Replayed indica que la solicitud ya se había aplicado.
type ApplyResult struct {
	Balance    decimal.Decimal
	MovementID string
	Replayed   bool
	Movement   *entity.StockMovement
}

// Tx unidad atómica en curso: repositorios atados a la transacción más los movimientos
// nuevos, que se publican solo después del commit.
type Tx struct {
	repository.Repos
	applied  []entity.StockMovement
	replayed []entity.MovementType
}

// Applied movimientos registrados en la transacción hasta ahora.
func (tx *Tx) Applied() []entity.StockMovement {
	return tx.applied
}

// Atomic ejecuta fn en una transacción. Los conflictos de concurrencia se reintentan hasta
// Policy.MaxRetries veces; si persisten se devuelve ErrConcurrencyConflict y nada queda escrito.
// timeout 0 usa Policy.TxTimeout.
func (s *BalanceStore) Atomic(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx *Tx) error) error {
	if timeout <= 0 {
		timeout = s.policy.TxTimeout
	}
	var lastErr error
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.Retry()
			s.log.Warn().Int("attempt", attempt).Err(lastErr).Msg("reintentando transacción por conflicto de concurrencia")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.policy.RetryBackoff):
			}
		}
		var tx *Tx
		err := s.txRunner.Run(ctx, repository.TxOptions{Timeout: timeout}, func(ctx context.Context, repos repository.Repos) error {
			tx = &Tx{Repos: repos}
			return fn(ctx, tx)
		})
		if err == nil {
			s.afterCommit(ctx, tx)
			return nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			if kind := domain.KindOf(err); kind != nil {
				s.metrics.TxFailed(kind.Error())
			} else {
				s.metrics.TxFailed("internal")
			}
			return err
		}
		lastErr = err
	}
	s.metrics.TxFailed(domain.ErrConcurrencyConflict.Error())
	return fmt.Errorf("%d intentos agotados: %w", s.policy.MaxRetries+1, lastErr)
}

func (s *BalanceStore) afterCommit(ctx context.Context, tx *Tx) {
	if tx == nil {
		return
	}
	for _, t := range tx.replayed {
		s.metrics.Replay(string(t))
	}
	if len(tx.applied) == 0 {
		return
	}
	for _, m := range tx.applied {
		s.metrics.MovementApplied(string(m.Type))
		if m.Corrective {
			s.metrics.Corrective(m.ReferenceType)
		}
	}
	if err := s.publisher.Publish(ctx, tx.applied); err != nil {
		s.log.Warn().Err(err).Int("movements", len(tx.applied)).Msg("no se pudieron publicar los movimientos")
	}
}

// GetBalance devuelve el saldo del par; un par sin fila tiene saldo cero.
func (s *BalanceStore) GetBalance(ctx context.Context, variationID, locationID string) (decimal.Decimal, error) {
	if variationID == "" || locationID == "" {
		return decimal.Zero, domain.Validationf("variation_id y location_id son obligatorios")
	}
	var qty decimal.Decimal
	err := s.txRunner.Run(ctx, repository.TxOptions{Timeout: s.policy.TxTimeout}, func(ctx context.Context, repos repository.Repos) error {
		b, err := repos.Balances.Get(ctx, variationID, locationID)
		if err != nil {
			return err
		}
		qty = b.Quantity
		return nil
	})
	return qty, err
}

// BalanceOf saldo de un par del negocio; NotFound si variación o bodega son de otro negocio.
func (s *BalanceStore) BalanceOf(ctx context.Context, businessID, variationID, locationID string) (*entity.StockBalance, error) {
	if variationID == "" || locationID == "" {
		return nil, domain.Validationf("variation_id y location_id son obligatorios")
	}
	var balance *entity.StockBalance
	err := s.txRunner.Run(ctx, repository.TxOptions{Timeout: s.policy.TxTimeout}, func(ctx context.Context, repos repository.Repos) error {
		if _, err := s.checkCatalog(ctx, repos, businessID, variationID, locationID); err != nil {
			return err
		}
		var err error
		balance, err = repos.Balances.Get(ctx, variationID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// callerTypes tipos que un documento externo registra directamente. Los demás los escriben los
// procesos internos con ApplyDeltaInTx.
var callerTypes = map[entity.MovementType]bool{
	entity.MovementPurchase:       true,
	entity.MovementPurchaseReturn: true,
	entity.MovementSale:           true,
	entity.MovementSaleVoid:       true,
	entity.MovementOpeningStock:   true,
	entity.MovementAdjustment:     true,
}

// processReferences referencias que solo escriben los procesos internos.
var processReferences = map[string]bool{
	entity.ReferenceTransfer:       true,
	entity.ReferenceTransferCancel: true,
	entity.ReferenceCustomerReturn: true,
	entity.ReferenceSupplierReturn: true,
	entity.ReferenceStockCount:     true,
	entity.ReferenceReconciliation: true,
}

// ApplyDelta aplica un movimiento de un documento externo en su propia transacción.
// Rechaza los tipos y referencias de los procesos internos.
func (s *BalanceStore) ApplyDelta(ctx context.Context, req MovementRequest) (*ApplyResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if !callerTypes[req.Type] {
		return nil, domain.NewStockError(domain.ErrValidation, req.VariationID, req.LocationID,
			fmt.Sprintf("los movimientos %s los registra su proceso, no se aplican directamente", req.Type))
	}
	if processReferences[req.ReferenceType] {
		return nil, domain.NewStockError(domain.ErrValidation, req.VariationID, req.LocationID,
			fmt.Sprintf("la referencia %s es de uso interno", req.ReferenceType))
	}
	var res *ApplyResult
	err := s.Atomic(ctx, 0, func(ctx context.Context, tx *Tx) error {
		var err error
		res, err = s.ApplyDeltaInTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		s.log.Info().
			Str("variation_id", req.VariationID).
			Str("location_id", req.LocationID).
			Str("type", string(req.Type)).
			Str("delta", req.Delta.String()).
			Str("balance", res.Balance.String()).
			Msg("movimiento registrado")
	}
	return res, nil
}

// ApplyDeltaInTx aplica un movimiento dentro de una transacción del caller; nunca confirma por sí mismo.
// Orden: validación, idempotencia, bloqueo de la fila, nuevo saldo, política de negativos,
// actualización versionada y registro del movimiento con BalanceAfter.
func (s *BalanceStore) ApplyDeltaInTx(ctx context.Context, tx *Tx, req MovementRequest) (*ApplyResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	variation, err := s.checkCatalog(ctx, tx.Repos, req.BusinessID, req.VariationID, req.LocationID)
	if err != nil {
		return nil, err
	}
	if variation.Serialized && !req.Delta.Equal(req.Delta.Truncate(0)) {
		return nil, domain.NewStockError(domain.ErrValidation, req.VariationID, req.LocationID, "una variación serializada solo admite cantidades enteras")
	}
	if req.ProductID == "" {
		req.ProductID = variation.ProductID
	}

	existing, err := tx.Movements.FindByKey(ctx, req.Key())
	if err != nil {
		return nil, fmt.Errorf("buscar movimiento existente: %w", err)
	}
	if existing != nil {
		if !existing.Delta.Equal(req.Delta) {
			return nil, domain.NewStockError(domain.ErrConflict, req.VariationID, req.LocationID,
				fmt.Sprintf("la referencia %s/%s ya se aplicó con delta %s", req.ReferenceType, req.ReferenceID, existing.Delta))
		}
		tx.replayed = append(tx.replayed, req.Type)
		s.log.Warn().Str("movement_id", existing.ID).Str("reference_id", req.ReferenceID).Msg("solicitud repetida, se devuelve el resultado original")
		return &ApplyResult{Balance: existing.BalanceAfter, MovementID: existing.ID, Replayed: true, Movement: existing}, nil
	}

	// Bloquea la fila del saldo (SELECT FOR UPDATE); se crea en cero si no existe
	balance, err := tx.Balances.GetForUpdate(ctx, req.VariationID, req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("bloquear saldo: %w", err)
	}
	newQty := balance.Quantity.Add(req.Delta)
	if req.Delta.IsNegative() && newQty.IsNegative() && !req.force && !req.AllowNegative {
		s.metrics.Insufficient(string(req.Type))
		return nil, domain.NewStockError(domain.ErrInsufficientStock, req.VariationID, req.LocationID,
			fmt.Sprintf("disponible %s, solicitado %s", balance.Quantity, req.Delta.Neg()))
	}
	if err := s.stampCost(ctx, tx.Repos, &req); err != nil {
		return nil, err
	}

	now := s.now()
	expected := balance.Version
	balance.Quantity = newQty
	balance.UpdatedAt = now
	if err := tx.Balances.UpdateVersioned(ctx, balance, expected); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		BusinessID:    req.BusinessID,
		ProductID:     req.ProductID,
		VariationID:   req.VariationID,
		LocationID:    req.LocationID,
		Type:          req.Type,
		Delta:         req.Delta,
		BalanceAfter:  newQty,
		UnitCost:      req.UnitCost,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		ActorID:       req.ActorID,
		Reason:        req.Reason,
		Notes:         req.Notes,
		Corrective:    req.Corrective,
		CreatedAt:     now,
	}
	if err := s.recordMovement(ctx, tx, mov); err != nil {
		return nil, err
	}
	return &ApplyResult{Balance: newQty, MovementID: mov.ID, Movement: mov}, nil
}

// recordMovement inserta la fila del libro; solo el Balance Store y la conciliación la usan.
func (s *BalanceStore) recordMovement(ctx context.Context, tx *Tx, mov *entity.StockMovement) error {
	if err := tx.Movements.Create(ctx, mov); err != nil {
		return fmt.Errorf("registrar movimiento: %w", err)
	}
	tx.applied = append(tx.applied, *mov)
	return nil
}

// Validate revisa la solicitud sin tocar la base de datos.
func (s *BalanceStore) Validate(req MovementRequest) error {
	fail := func(detail string) error {
		return domain.NewStockError(domain.ErrValidation, req.VariationID, req.LocationID, detail)
	}
	switch {
	case req.VariationID == "" || req.LocationID == "":
		return fail("variation_id y location_id son obligatorios")
	case req.BusinessID == "":
		return fail("business_id es obligatorio")
	case !req.Type.IsValid():
		return fail(fmt.Sprintf("tipo de movimiento desconocido: %q", req.Type))
	case req.ReferenceType == "" || req.ReferenceID == "":
		return fail("reference_type y reference_id son obligatorios")
	case req.UnitCost.IsNegative():
		return fail("unit_cost no puede ser negativo")
	}
	if req.Delta.IsZero() && !zeroDeltaAllowed(req) {
		return fail("delta en cero solo se admite en devoluciones de cliente y tomas físicas")
	}
	if req.Type.IsInbound() && req.Delta.IsNegative() {
		return fail(fmt.Sprintf("%s no admite delta negativo", req.Type))
	}
	if req.Type.IsOutbound() && req.Delta.IsPositive() {
		return fail(fmt.Sprintf("%s no admite delta positivo", req.Type))
	}
	if req.Type == entity.MovementAdjustment && req.Reason == "" && !req.Corrective {
		return fail("los ajustes requieren un motivo")
	}
	if req.AllowNegative && !s.policy.NegativeAllowed[req.Type] {
		return fail(fmt.Sprintf("%s no puede dejar saldo negativo", req.Type))
	}
	return nil
}

// zeroDeltaAllowed una devolución no revendible y una toma física sin diferencia dejan fila
// aunque no muevan stock.
func zeroDeltaAllowed(req MovementRequest) bool {
	switch {
	case req.Type == entity.MovementCustomerReturn:
		return true
	case req.Type == entity.MovementAdjustment && req.ReferenceType == entity.ReferenceStockCount:
		return true
	}
	return false
}

// stampCost fija el costo de un movimiento que llega sin él. Las salidas consumen capas con el
// método por defecto y una anulación toma el costo de la venta que revierte. Ajustes y
// devoluciones positivas entran al promedio vigente; el resto de entradas conserva el costo
// informado.
func (s *BalanceStore) stampCost(ctx context.Context, repos repository.Repos, req *MovementRequest) error {
	if !req.UnitCost.IsZero() || req.Delta.IsZero() {
		return nil
	}
	var err error
	switch {
	case req.Delta.IsNegative():
		req.UnitCost, err = s.outboundCost(ctx, repos, req.VariationID, req.LocationID, req.Delta.Neg())
	case req.Type == entity.MovementSaleVoid:
		key := req.Key()
		key.Type = entity.MovementSale
		sale, ferr := repos.Movements.FindByKey(ctx, key)
		if ferr != nil {
			return fmt.Errorf("buscar venta anulada: %w", ferr)
		}
		if sale != nil && sale.UnitCost.IsPositive() {
			req.UnitCost = sale.UnitCost
			return nil
		}
		req.UnitCost, err = s.averageCost(ctx, repos, req.VariationID, req.LocationID)
	case req.Type == entity.MovementAdjustment, req.Type == entity.MovementCustomerReturn:
		req.UnitCost, err = s.averageCost(ctx, repos, req.VariationID, req.LocationID)
	}
	return err
}

// checkCatalog verifica que variación y bodega existan y pertenezcan al negocio.
func (s *BalanceStore) checkCatalog(ctx context.Context, repos repository.Repos, businessID, variationID, locationID string) (*entity.Variation, error) {
	variation, err := repos.Variations.GetByID(ctx, variationID)
	if err != nil {
		return nil, fmt.Errorf("buscar variación: %w", err)
	}
	if variation == nil || variation.BusinessID != businessID {
		return nil, domain.NewStockError(domain.ErrNotFound, variationID, locationID, "variación no encontrada")
	}
	location, err := repos.Locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("buscar bodega: %w", err)
	}
	if location == nil || location.BusinessID != businessID {
		return nil, domain.NewStockError(domain.ErrNotFound, variationID, locationID, "bodega no encontrada")
	}
	return variation, nil
}
