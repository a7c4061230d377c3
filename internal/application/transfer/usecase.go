package transfer

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
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Políticas de recepción cuando un ítem llega a completed sin cantidad recibida.
const (
	FallbackSentQuantity = "sent_quantity"
	FallbackReject       = "reject"
)

// Config políticas del traslado.
type Config struct {
	ReceiptFallback string
	LongTxTimeout   time.Duration
	// LongTxThreshold cantidad de ítems a partir de la cual se usa LongTxTimeout.
	LongTxThreshold int
}

// UseCase máquina de estados de traslados entre bodegas.
// Solo sent y completed mueven stock; cada transición queda en el historial.
type UseCase struct {
	store     *appinv.BalanceStore
	valuation *appinv.ValuationEngine
	serials   *serial.Registry
	cfg       Config
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewUseCase construye el caso de uso de traslados.
func NewUseCase(
	store *appinv.BalanceStore,
	valuation *appinv.ValuationEngine,
	serials *serial.Registry,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *UseCase {
	if cfg.ReceiptFallback == "" {
		cfg.ReceiptFallback = FallbackSentQuantity
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		store:     store,
		valuation: valuation,
		serials:   serials,
		cfg:       cfg,
		log:       log.Named("transfer"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateItemInput línea de un traslado nuevo.
type CreateItemInput struct {
	VariationID string
	Quantity    decimal.Decimal
	SerialIDs   []int64
}

// CreateTransferInput datos para crear un traslado en draft.
type CreateTransferInput struct {
	BusinessID     string
	FromLocationID string
	ToLocationID   string
	Notes          string
	ActorID        string
	Items          []CreateItemInput
}

// Create registra el traslado en draft. No mueve stock.
func (uc *UseCase) Create(ctx context.Context, in CreateTransferInput) (*entity.Transfer, error) {
	if in.FromLocationID == "" || in.ToLocationID == "" {
		return nil, domain.Validationf("from_location_id y to_location_id son obligatorios")
	}
	if in.FromLocationID == in.ToLocationID {
		return nil, domain.Validationf("la bodega de origen y destino deben ser distintas")
	}
	if len(in.Items) == 0 {
		return nil, domain.Validationf("el traslado debe tener al menos un ítem")
	}
	seenVariation := map[string]bool{}
	seenSerial := map[int64]bool{}
	for _, it := range in.Items {
		if it.VariationID == "" {
			return nil, domain.Validationf("variation_id es obligatorio")
		}
		if seenVariation[it.VariationID] {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, in.FromLocationID, "variación repetida en el traslado")
		}
		seenVariation[it.VariationID] = true
		if !it.Quantity.IsPositive() {
			return nil, domain.NewStockError(domain.ErrValidation, it.VariationID, in.FromLocationID, "la cantidad debe ser mayor a cero")
		}
		for _, id := range it.SerialIDs {
			if seenSerial[id] {
				return nil, domain.Validationf("la unidad %d aparece más de una vez", id)
			}
			seenSerial[id] = true
		}
	}

	now := uc.now()
	t := &entity.Transfer{
		ID:             uuid.New().String(),
		BusinessID:     in.BusinessID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Status:         entity.TransferDraft,
		Notes:          in.Notes,
		CreatedBy:      in.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		for _, id := range []string{in.FromLocationID, in.ToLocationID} {
			loc, err := tx.Locations.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("buscar bodega: %w", err)
			}
			if loc == nil || loc.BusinessID != in.BusinessID {
				return domain.NotFoundf("bodega %s", id)
			}
		}
		t.Items = t.Items[:0]
		for _, it := range in.Items {
			variation, err := tx.Variations.GetByID(ctx, it.VariationID)
			if err != nil {
				return fmt.Errorf("buscar variación: %w", err)
			}
			if variation == nil || variation.BusinessID != in.BusinessID {
				return domain.NewStockError(domain.ErrNotFound, it.VariationID, in.FromLocationID, "variación no encontrada")
			}
			if err := checkSerialCount(variation, it); err != nil {
				return err
			}
			for _, id := range it.SerialIDs {
				unit, err := tx.Serials.GetByID(ctx, id)
				if err != nil {
					return fmt.Errorf("buscar unidad: %w", err)
				}
				if unit == nil || unit.BusinessID != in.BusinessID || unit.VariationID != it.VariationID {
					return domain.NewStockError(domain.ErrNotFound, it.VariationID, in.FromLocationID, fmt.Sprintf("unidad %d no encontrada", id))
				}
			}
			t.Items = append(t.Items, entity.TransferItem{
				ID:          uuid.New().String(),
				ProductID:   variation.ProductID,
				VariationID: it.VariationID,
				Quantity:    it.Quantity,
				SerialIDs:   append([]int64(nil), it.SerialIDs...),
			})
		}
		return tx.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("transfer_id", t.ID).Str("from", t.FromLocationID).Str("to", t.ToLocationID).Int("items", len(t.Items)).Msg("traslado creado")
	return t, nil
}

// checkSerialCount una variación serializada exige cantidad entera igual al número de unidades.
func checkSerialCount(variation *entity.Variation, it CreateItemInput) error {
	if !variation.Serialized {
		if len(it.SerialIDs) > 0 {
			return domain.NewStockError(domain.ErrValidation, it.VariationID, "", "la variación no se controla por número de serie")
		}
		return nil
	}
	if !it.Quantity.Equal(decimal.NewFromInt(int64(len(it.SerialIDs)))) {
		return domain.NewStockError(domain.ErrValidation, it.VariationID, "",
			fmt.Sprintf("cantidad %s no coincide con %d unidades serializadas", it.Quantity, len(it.SerialIDs)))
	}
	return nil
}

// Get traslado por ID dentro del negocio.
func (uc *UseCase) Get(ctx context.Context, businessID, id string) (*entity.Transfer, error) {
	var t *entity.Transfer
	err := uc.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		t, err = tx.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil || t.BusinessID != businessID {
		return nil, domain.NotFoundf("traslado %s", id)
	}
	return t, nil
}

// TransitionPayload datos de la transición. Received (variation_id -> cantidad) solo aplica
// en verifying -> verified.
type TransitionPayload struct {
	BusinessID string
	ActorID    string
	Note       string
	Received   map[string]decimal.Decimal
}

// Transition avanza el traslado un solo paso o lo cancela antes de completed.
// sent, completed y la cancelación posterior a sent aplican sus movimientos, estados de unidades
// y el cambio de estado en una única transacción: si un ítem falla no queda nada escrito.
func (uc *UseCase) Transition(ctx context.Context, transferID string, target entity.TransferStatus, p TransitionPayload) (*entity.Transfer, error) {
	if transferID == "" || p.ActorID == "" {
		return nil, domain.Validationf("transfer_id y actor son obligatorios")
	}
	if !inventory.IsValidTransferStatus(target) {
		return nil, domain.Validationf("estado de traslado desconocido: %q", target)
	}
	if len(p.Received) > 0 && target != entity.TransferVerified {
		return nil, domain.Validationf("las cantidades recibidas solo se informan al verificar")
	}

	current, err := uc.Get(ctx, p.BusinessID, transferID)
	if err != nil {
		return nil, err
	}

	var out *entity.Transfer
	err = uc.store.Atomic(ctx, uc.timeoutFor(current), func(ctx context.Context, tx *appinv.Tx) error {
		t, err := tx.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return fmt.Errorf("bloquear traslado: %w", err)
		}
		if t == nil || t.BusinessID != p.BusinessID {
			return domain.NotFoundf("traslado %s", transferID)
		}
		from := t.Status
		if !inventory.CanTransition(from, target) {
			return &domain.StockError{Kind: domain.ErrInvalidTransition, Detail: fmt.Sprintf("traslado %s: %s -> %s", t.ID, from, target)}
		}

		switch target {
		case entity.TransferSent:
			err = uc.send(ctx, tx, t, p)
		case entity.TransferVerified:
			err = uc.verify(t, p)
		case entity.TransferCompleted:
			err = uc.complete(ctx, tx, t, p)
		case entity.TransferCancelled:
			err = uc.cancel(ctx, tx, t, from, p)
		}
		if err != nil {
			return err
		}

		now := uc.now()
		t.Status = target
		t.UpdatedAt = now
		t.History = append(t.History, entity.TransferEvent{From: from, To: target, ActorID: p.ActorID, At: now, Note: p.Note})
		if err := tx.Transfers.Update(ctx, t); err != nil {
			return fmt.Errorf("actualizar traslado: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.TransferTransition(string(target))
	discrepancies := 0
	for _, it := range out.Items {
		if it.HasDiscrepancy {
			discrepancies++
		}
	}
	ev := uc.log.Info()
	if discrepancies > 0 && target == entity.TransferVerified {
		ev = uc.log.Warn()
	}
	ev.Str("transfer_id", out.ID).
		Str("status", string(target)).
		Str("actor_id", p.ActorID).
		Int("discrepancies", discrepancies).
		Msg("transición de traslado")
	return out, nil
}

func (uc *UseCase) timeoutFor(t *entity.Transfer) time.Duration {
	if uc.cfg.LongTxTimeout <= 0 {
		return 0
	}
	if uc.cfg.LongTxThreshold > 0 && len(t.Items) > uc.cfg.LongTxThreshold {
		return uc.cfg.LongTxTimeout
	}
	for _, it := range t.Items {
		if len(it.SerialIDs) > 0 {
			return uc.cfg.LongTxTimeout
		}
	}
	return 0
}

// send descuenta el origen: transfer_out por ítem al costo de la valuación del origen y
// unidades a in_transit. Los ítems se procesan en orden de variación (orden de bloqueo).
func (uc *UseCase) send(ctx context.Context, tx *appinv.Tx, t *entity.Transfer, p TransitionPayload) error {
	for _, idx := range itemOrder(t.Items) {
		item := &t.Items[idx]
		unitCost, err := uc.valuation.OutboundUnitCost(ctx, tx.Repos, item.VariationID, t.FromLocationID, item.Quantity)
		if err != nil {
			return err
		}
		item.UnitCost = unitCost
		if _, err := uc.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
			BusinessID:    t.BusinessID,
			ProductID:     item.ProductID,
			VariationID:   item.VariationID,
			LocationID:    t.FromLocationID,
			Type:          entity.MovementTransferOut,
			Delta:         item.Quantity.Neg(),
			UnitCost:      unitCost,
			ReferenceType: entity.ReferenceTransfer,
			ReferenceID:   t.ID,
			ActorID:       p.ActorID,
		}); err != nil {
			return err
		}
		for _, id := range sortedSerials(item.SerialIDs) {
			if _, err := uc.serials.TransitionInTx(ctx, tx.Repos, id, entity.SerialInTransit, serial.TransitionInput{
				BusinessID:       t.BusinessID,
				MovementType:     entity.MovementTransferOut,
				ExpectLocationID: t.FromLocationID,
				ExpectStatus:     entity.SerialInStock,
				ReferenceType:    entity.ReferenceTransfer,
				ReferenceID:      t.ID,
				ActorID:          p.ActorID,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// verify registra las cantidades recibidas y marca discrepancias.
func (uc *UseCase) verify(t *entity.Transfer, p TransitionPayload) error {
	known := map[string]bool{}
	for i := range t.Items {
		item := &t.Items[i]
		known[item.VariationID] = true
		qty, ok := p.Received[item.VariationID]
		if !ok {
			continue
		}
		if qty.IsNegative() {
			return domain.NewStockError(domain.ErrValidation, item.VariationID, t.ToLocationID, "la cantidad recibida no puede ser negativa")
		}
		q := qty
		item.ReceivedQuantity = &q
		item.HasDiscrepancy = !qty.Equal(item.Quantity)
	}
	for variationID := range p.Received {
		if !known[variationID] {
			return domain.NewStockError(domain.ErrValidation, variationID, t.ToLocationID, "la variación no pertenece al traslado")
		}
	}
	return nil
}

// complete suma en destino la cantidad recibida. Sin cantidad recibida decide la política:
// sent_quantity asume la cantidad enviada y lo deja anotado; reject rechaza la transición.
// La diferencia de una discrepancia no se devuelve al origen.
func (uc *UseCase) complete(ctx context.Context, tx *appinv.Tx, t *entity.Transfer, p TransitionPayload) error {
	for _, idx := range itemOrder(t.Items) {
		item := &t.Items[idx]
		qty := item.Quantity
		notes := ""
		if item.ReceivedQuantity != nil && !item.ReceivedQuantity.IsZero() {
			qty = *item.ReceivedQuantity
		} else {
			if uc.cfg.ReceiptFallback == FallbackReject {
				return domain.NewStockError(domain.ErrValidation, item.VariationID, t.ToLocationID, "el ítem no tiene cantidad recibida verificada")
			}
			item.ReceiptAssumed = true
			notes = fmt.Sprintf("recepción no verificada: se asume la cantidad enviada (%s)", item.Quantity)
			uc.log.Warn().Str("transfer_id", t.ID).Str("variation_id", item.VariationID).Msg(notes)
		}
		if _, err := uc.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
			BusinessID:    t.BusinessID,
			ProductID:     item.ProductID,
			VariationID:   item.VariationID,
			LocationID:    t.ToLocationID,
			Type:          entity.MovementTransferIn,
			Delta:         qty,
			UnitCost:      item.UnitCost,
			ReferenceType: entity.ReferenceTransfer,
			ReferenceID:   t.ID,
			ActorID:       p.ActorID,
			Notes:         notes,
		}); err != nil {
			return err
		}
		for _, id := range sortedSerials(item.SerialIDs) {
			if _, err := uc.serials.TransitionInTx(ctx, tx.Repos, id, entity.SerialInStock, serial.TransitionInput{
				BusinessID:    t.BusinessID,
				MovementType:  entity.MovementTransferIn,
				ToLocationID:  t.ToLocationID,
				ExpectStatus:  entity.SerialInTransit,
				ReferenceType: entity.ReferenceTransfer,
				ReferenceID:   t.ID,
				ActorID:       p.ActorID,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// cancel antes de sent es solo un cambio de estado y exige que el traslado no tenga filas en el
// libro. Desde sent revierte en origen lo que registró cada transfer_out, con un transfer_in al
// mismo costo bajo la referencia transfer_cancel, y devuelve las unidades en tránsito al origen.
func (uc *UseCase) cancel(ctx context.Context, tx *appinv.Tx, t *entity.Transfer, from entity.TransferStatus, p TransitionPayload) error {
	movements, err := tx.Movements.ListByReference(ctx, entity.ReferenceTransfer, t.ID)
	if err != nil {
		return fmt.Errorf("leer movimientos del traslado: %w", err)
	}
	if !inventory.CancelNeedsReversal(from) {
		if len(movements) > 0 {
			return &domain.StockError{Kind: domain.ErrConsistency,
				Detail: fmt.Sprintf("traslado %s en %s ya tiene %d movimientos en el libro", t.ID, from, len(movements))}
		}
		return nil
	}

	deducted := map[string]decimal.Decimal{}
	for _, m := range movements {
		if m.Type == entity.MovementTransferOut && m.LocationID == t.FromLocationID {
			deducted[m.VariationID] = deducted[m.VariationID].Add(m.Delta.Neg())
		}
	}
	for _, idx := range itemOrder(t.Items) {
		item := &t.Items[idx]
		qty := deducted[item.VariationID]
		if qty.IsPositive() {
			if _, err := uc.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
				BusinessID:    t.BusinessID,
				ProductID:     item.ProductID,
				VariationID:   item.VariationID,
				LocationID:    t.FromLocationID,
				Type:          entity.MovementTransferIn,
				Delta:         qty,
				UnitCost:      item.UnitCost,
				ReferenceType: entity.ReferenceTransferCancel,
				ReferenceID:   t.ID,
				ActorID:       p.ActorID,
				Notes:         fmt.Sprintf("reversa del transfer_out por cancelación desde %s", from),
			}); err != nil {
				return err
			}
		}
		for _, id := range sortedSerials(item.SerialIDs) {
			if _, err := uc.serials.TransitionInTx(ctx, tx.Repos, id, entity.SerialInStock, serial.TransitionInput{
				BusinessID:    t.BusinessID,
				MovementType:  entity.MovementTransferIn,
				ToLocationID:  t.FromLocationID,
				ExpectStatus:  entity.SerialInTransit,
				ReferenceType: entity.ReferenceTransferCancel,
				ReferenceID:   t.ID,
				ActorID:       p.ActorID,
			}); err != nil {
				return err
			}
		}
	}
	uc.log.Warn().Str("transfer_id", t.ID).Str("from", string(from)).Msg("traslado cancelado después del envío; stock devuelto al origen")
	return nil
}

// itemOrder índices de los ítems ordenados por variación.
func itemOrder(items []entity.TransferItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return items[idx[a]].VariationID < items[idx[b]].VariationID })
	return idx
}

func sortedSerials(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
