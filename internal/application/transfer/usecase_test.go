package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

const (
	biz  = "biz-1"
	locA = "loc-a"
	locB = "loc-b"
	varA = "var-a"
	varB = "var-b"
	varS = "var-s"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	mem     *memory.Store
	store   *appinv.BalanceStore
	serials *serial.Registry
	uc      *transfer.UseCase
}

func newFixture(t *testing.T, cfg transfer.Config) *fixture {
	t.Helper()
	mem := memory.New()
	mem.AddLocation(entity.Location{ID: locA, BusinessID: biz, Name: "Bodega A", Active: true})
	mem.AddLocation(entity.Location{ID: locB, BusinessID: biz, Name: "Bodega B", Active: true})
	mem.AddVariation(entity.Variation{ID: varA, BusinessID: biz, ProductID: "prod-a"})
	mem.AddVariation(entity.Variation{ID: varB, BusinessID: biz, ProductID: "prod-b"})
	mem.AddVariation(entity.Variation{ID: varS, BusinessID: biz, ProductID: "prod-s", Serialized: true})

	policy := appinv.DefaultPolicy()
	policy.RetryBackoff = time.Millisecond
	store := appinv.NewBalanceStore(mem, nil, policy, nil, nil)
	valuation := appinv.NewValuationEngine(store, nil, nil)
	serials := serial.NewRegistry(store, nil, nil)
	return &fixture{
		mem:     mem,
		store:   store,
		serials: serials,
		uc:      transfer.NewUseCase(store, valuation, serials, cfg, nil, nil),
	}
}

func (f *fixture) purchase(t *testing.T, variationID, locationID, qty, ref string) {
	t.Helper()
	_, err := f.store.ApplyDelta(context.Background(), appinv.MovementRequest{
		BusinessID: biz, VariationID: variationID, LocationID: locationID,
		Type: entity.MovementPurchase, Delta: d(qty), UnitCost: d("5"),
		ReferenceType: "po", ReferenceID: ref, ActorID: "user-1",
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, variationID, locationID string) decimal.Decimal {
	t.Helper()
	q, err := f.store.GetBalance(context.Background(), variationID, locationID)
	require.NoError(t, err)
	return q
}

func (f *fixture) create(t *testing.T, items ...transfer.CreateItemInput) *entity.Transfer {
	t.Helper()
	tr, err := f.uc.Create(context.Background(), transfer.CreateTransferInput{
		BusinessID: biz, FromLocationID: locA, ToLocationID: locB, ActorID: "user-1", Items: items,
	})
	require.NoError(t, err)
	return tr
}

func payload() transfer.TransitionPayload {
	return transfer.TransitionPayload{BusinessID: biz, ActorID: "user-1"}
}

// advance avanza paso a paso hasta target.
func (f *fixture) advance(t *testing.T, id string, targets ...entity.TransferStatus) *entity.Transfer {
	t.Helper()
	var tr *entity.Transfer
	for _, s := range targets {
		var err error
		tr, err = f.uc.Transition(context.Background(), id, s, payload())
		require.NoError(t, err, "transición a %s", s)
	}
	return tr
}

var toApproved = []entity.TransferStatus{entity.TransferSubmitted, entity.TransferChecked, entity.TransferApproved}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_EnviadoDescuentaOrigenYCompletadoAcreditaDestino(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("5")})
	assert.Equal(t, entity.TransferDraft, tr.Status)

	f.advance(t, tr.ID, toApproved...)
	assert.True(t, f.balance(t, varA, locA).Equal(d("10")), "antes de sent no se mueve stock")

	sent := f.advance(t, tr.ID, entity.TransferSent)
	assert.True(t, f.balance(t, varA, locA).Equal(d("5")))
	assert.True(t, f.balance(t, varA, locB).IsZero(), "en tránsito no se acredita el destino")
	assert.True(t, sent.Items[0].UnitCost.Equal(d("5")), "costo del origen al enviar")

	done := f.advance(t, tr.ID, entity.TransferArrived, entity.TransferVerifying, entity.TransferVerified, entity.TransferCompleted)
	assert.True(t, f.balance(t, varA, locA).Equal(d("5")))
	assert.True(t, f.balance(t, varA, locB).Equal(d("5")))
	assert.Equal(t, entity.TransferCompleted, done.Status)
	assert.True(t, done.Items[0].ReceiptAssumed, "sin cantidad verificada se asume la enviada")
	require.Len(t, done.History, 8)
	assert.Equal(t, entity.TransferDraft, done.History[0].From)
	assert.Equal(t, entity.TransferCompleted, done.History[7].To)
}

func TestTransfer_DiscrepanciaAcreditaLoRecibido(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("5")})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferArrived, entity.TransferVerifying)...)

	p := payload()
	p.Received = map[string]decimal.Decimal{varA: d("4")}
	verified, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferVerified, p)
	require.NoError(t, err)
	assert.True(t, verified.Items[0].HasDiscrepancy)

	f.advance(t, tr.ID, entity.TransferCompleted)
	assert.True(t, f.balance(t, varA, locB).Equal(d("4")))
	assert.True(t, f.balance(t, varA, locA).Equal(d("5")), "la diferencia no vuelve al origen")
}

func TestTransfer_EnvioFallido_NoEscribeNada(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t,
		transfer.CreateItemInput{VariationID: varA, Quantity: d("5")},
		transfer.CreateItemInput{VariationID: varB, Quantity: d("3")},
	)
	f.advance(t, tr.ID, toApproved...)
	before := f.mem.MovementCount()

	_, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferSent, payload())

	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.balance(t, varA, locA).Equal(d("10")), "el ítem que sí tenía stock tampoco se descuenta")
	assert.Equal(t, before, f.mem.MovementCount())
	got, err := f.uc.Get(context.Background(), biz, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, got.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reglas de transición
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_SaltarEstado_TransicionInvalida(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("1")})

	_, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferApproved, payload())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransfer_CancelarAntesDeEnviar_SoloCambiaElEstado(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	before := f.mem.MovementCount()

	early := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("1")})
	cancelled := f.advance(t, early.ID, entity.TransferSubmitted, entity.TransferCancelled)

	assert.Equal(t, entity.TransferCancelled, cancelled.Status)
	assert.True(t, f.balance(t, varA, locA).Equal(d("10")))
	assert.Equal(t, before, f.mem.MovementCount())

	_, err := f.uc.Transition(context.Background(), early.ID, entity.TransferSubmitted, payload())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "cancelled es terminal")
}

func TestTransfer_CancelarBorradorConFilasEnElLibro_Inconsistente(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	ctx := context.Background()
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("5")})

	// Fila escrita por fuera del flujo del traslado
	err := f.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		_, err := f.store.ApplyDeltaInTx(ctx, tx, appinv.MovementRequest{
			BusinessID: biz, VariationID: varA, LocationID: locA, Type: entity.MovementTransferOut,
			Delta: d("-5"), ReferenceType: entity.ReferenceTransfer, ReferenceID: tr.ID, ActorID: "u",
		})
		return err
	})
	require.NoError(t, err)

	_, err = f.uc.Transition(ctx, tr.ID, entity.TransferCancelled, payload())
	assert.ErrorIs(t, err, domain.ErrConsistency)
	got, err := f.uc.Get(ctx, biz, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDraft, got.Status)
}

func TestTransfer_CancelarDespuesDeEnviar_DevuelveElStock(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	ctx := context.Background()
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("4")})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferArrived)...)
	require.True(t, f.balance(t, varA, locA).Equal(d("6")))

	cancelled := f.advance(t, tr.ID, entity.TransferCancelled)

	assert.Equal(t, entity.TransferCancelled, cancelled.Status)
	assert.True(t, f.balance(t, varA, locA).Equal(d("10")))
	assert.True(t, f.balance(t, varA, locB).IsZero())
	require.Len(t, cancelled.History, 6)
	assert.Equal(t, entity.TransferArrived, cancelled.History[5].From)

	var reversal []*entity.StockMovement
	err := f.store.Atomic(ctx, 0, func(ctx context.Context, tx *appinv.Tx) error {
		var err error
		reversal, err = tx.Movements.ListByReference(ctx, entity.ReferenceTransferCancel, tr.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, reversal, 1)
	assert.Equal(t, entity.MovementTransferIn, reversal[0].Type)
	assert.Equal(t, locA, reversal[0].LocationID)
	assert.True(t, reversal[0].Delta.Equal(d("4")))
	assert.True(t, reversal[0].UnitCost.Equal(d("5")), "vuelve al costo con que salió")

	_, err = f.uc.Transition(ctx, tr.ID, entity.TransferVerifying, payload())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransfer_CancelarCompletado_TransicionInvalida(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("1")})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferArrived,
		entity.TransferVerifying, entity.TransferVerified, entity.TransferCompleted)...)

	_, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferCancelled, payload())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.True(t, f.balance(t, varA, locB).Equal(d("1")))
}

func TestTransfer_PoliticaReject_SinRecepcionVerificada(t *testing.T) {
	f := newFixture(t, transfer.Config{ReceiptFallback: transfer.FallbackReject})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("5")})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferArrived, entity.TransferVerifying, entity.TransferVerified)...)

	_, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferCompleted, payload())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.True(t, f.balance(t, varA, locB).IsZero())
}

func TestTransfer_CantidadesRecibidasInvalidas(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.purchase(t, varA, locA, "10", "po-1")
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("5")})

	p := payload()
	p.Received = map[string]decimal.Decimal{varA: d("5")}
	_, err := f.uc.Transition(context.Background(), tr.ID, entity.TransferSubmitted, p)
	assert.ErrorIs(t, err, domain.ErrValidation, "solo se informan al verificar")

	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferArrived, entity.TransferVerifying)...)
	p.Received = map[string]decimal.Decimal{varB: d("1")}
	_, err = f.uc.Transition(context.Background(), tr.ID, entity.TransferVerified, p)
	assert.ErrorIs(t, err, domain.ErrValidation, "variación ajena al traslado")
}

func TestTransfer_OtroNegocio_NotFound(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	tr := f.create(t, transfer.CreateItemInput{VariationID: varA, Quantity: d("1")})

	_, err := f.uc.Get(context.Background(), "biz-2", tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := payload()
	p.BusinessID = "biz-2"
	_, err = f.uc.Transition(context.Background(), tr.ID, entity.TransferSubmitted, p)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	ctx := context.Background()
	base := transfer.CreateTransferInput{BusinessID: biz, FromLocationID: locA, ToLocationID: locB, ActorID: "u"}

	same := base
	same.ToLocationID = locA
	same.Items = []transfer.CreateItemInput{{VariationID: varA, Quantity: d("1")}}
	_, err := f.uc.Create(ctx, same)
	assert.ErrorIs(t, err, domain.ErrValidation)

	empty := base
	_, err = f.uc.Create(ctx, empty)
	assert.ErrorIs(t, err, domain.ErrValidation)

	repeated := base
	repeated.Items = []transfer.CreateItemInput{{VariationID: varA, Quantity: d("1")}, {VariationID: varA, Quantity: d("2")}}
	_, err = f.uc.Create(ctx, repeated)
	assert.ErrorIs(t, err, domain.ErrValidation)

	zero := base
	zero.Items = []transfer.CreateItemInput{{VariationID: varA, Quantity: d("0")}}
	_, err = f.uc.Create(ctx, zero)
	assert.ErrorIs(t, err, domain.ErrValidation)

	serialMismatch := base
	serialMismatch.Items = []transfer.CreateItemInput{{VariationID: varS, Quantity: d("2"), SerialIDs: []int64{1}}}
	_, err = f.uc.Create(ctx, serialMismatch)
	assert.ErrorIs(t, err, domain.ErrValidation)

	unknown := base
	unknown.Items = []transfer.CreateItemInput{{VariationID: "var-x", Quantity: d("1")}}
	_, err = f.uc.Create(ctx, unknown)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Unidades serializadas
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_UnidadesSerializadasViajanConElTraslado(t *testing.T) {
	f := newFixture(t, transfer.Config{LongTxTimeout: time.Minute})
	ctx := context.Background()
	units, err := f.serials.Register(ctx, serial.RegisterInput{
		BusinessID: biz, VariationID: varS, LocationID: locA, PurchaseCost: d("100"),
		ReferenceType: "po", ReferenceID: "po-s", ActorID: "u", SerialNumbers: []string{"SN-1", "SN-2"},
	})
	require.NoError(t, err)
	ids := []int64{units[0].ID, units[1].ID}

	tr := f.create(t, transfer.CreateItemInput{VariationID: varS, Quantity: d("2"), SerialIDs: ids})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent)...)

	u, err := f.serials.Get(ctx, biz, ids[0])
	require.NoError(t, err)
	assert.Equal(t, entity.SerialInTransit, u.Status)
	assert.True(t, f.balance(t, varS, locA).IsZero())

	f.advance(t, tr.ID, entity.TransferArrived, entity.TransferVerifying, entity.TransferVerified, entity.TransferCompleted)
	for _, id := range ids {
		u, err := f.serials.Get(ctx, biz, id)
		require.NoError(t, err)
		assert.Equal(t, entity.SerialInStock, u.Status)
		assert.Equal(t, locB, u.CurrentLocationID)
	}
	assert.True(t, f.balance(t, varS, locB).Equal(d("2")))

	history, err := f.serials.History(ctx, biz, ids[0])
	require.NoError(t, err)
	require.Len(t, history, 3, "purchase, transfer_out y transfer_in")
	assert.Equal(t, entity.MovementTransferIn, history[2].MovementType)
}

func TestTransfer_CancelarEnviadoDevuelveUnidadesAlOrigen(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	ctx := context.Background()
	units, err := f.serials.Register(ctx, serial.RegisterInput{
		BusinessID: biz, VariationID: varS, LocationID: locA, PurchaseCost: d("100"),
		ReferenceType: "po", ReferenceID: "po-s", ActorID: "u", SerialNumbers: []string{"SN-1"},
	})
	require.NoError(t, err)
	id := units[0].ID

	tr := f.create(t, transfer.CreateItemInput{VariationID: varS, Quantity: d("1"), SerialIDs: []int64{id}})
	f.advance(t, tr.ID, append(toApproved, entity.TransferSent, entity.TransferCancelled)...)

	u, err := f.serials.Get(ctx, biz, id)
	require.NoError(t, err)
	assert.Equal(t, entity.SerialInStock, u.Status)
	assert.Equal(t, locA, u.CurrentLocationID)
	assert.True(t, f.balance(t, varS, locA).Equal(d("1")))

	history, err := f.serials.History(ctx, biz, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entity.ReferenceTransferCancel, history[2].ReferenceType)
}
