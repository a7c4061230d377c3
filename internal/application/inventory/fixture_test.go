package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

const (
	biz      = "biz-1"
	otherBiz = "biz-2"
	locA     = "loc-a"
	locB     = "loc-b"
	varA     = "var-a"
	varS     = "var-s"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// recordingPublisher guarda lo publicado después de cada commit.
type recordingPublisher struct {
	mu        sync.Mutex
	published []entity.StockMovement
}

func (p *recordingPublisher) Publish(_ context.Context, movements []entity.StockMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, movements...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fixture struct {
	mem       *memory.Store
	pub       *recordingPublisher
	store     *appinv.BalanceStore
	ledger    *appinv.Ledger
	valuation *appinv.ValuationEngine
}

func newFixture(t *testing.T, mods ...func(*appinv.Policy)) *fixture {
	t.Helper()
	mem := memory.New()
	mem.AddLocation(entity.Location{ID: locA, BusinessID: biz, Name: "Bodega A", Active: true})
	mem.AddLocation(entity.Location{ID: locB, BusinessID: biz, Name: "Bodega B", Active: true})
	mem.AddVariation(entity.Variation{ID: varA, BusinessID: biz, ProductID: "prod-a", SKU: "SKU-A"})
	mem.AddVariation(entity.Variation{ID: varS, BusinessID: biz, ProductID: "prod-s", SKU: "SKU-S", Serialized: true})

	policy := appinv.DefaultPolicy()
	policy.RetryBackoff = time.Millisecond
	for _, m := range mods {
		m(&policy)
	}
	pub := &recordingPublisher{}
	store := appinv.NewBalanceStore(mem, pub, policy, nil, nil)
	return &fixture{
		mem:       mem,
		pub:       pub,
		store:     store,
		ledger:    appinv.NewLedger(store, nil, nil),
		valuation: appinv.NewValuationEngine(store, nil, nil),
	}
}

func (f *fixture) req(typ entity.MovementType, delta, cost, ref string) appinv.MovementRequest {
	return appinv.MovementRequest{
		BusinessID:    biz,
		VariationID:   varA,
		LocationID:    locA,
		Type:          typ,
		Delta:         d(delta),
		UnitCost:      d(cost),
		ReferenceType: "po",
		ReferenceID:   ref,
		ActorID:       "user-1",
	}
}

func (f *fixture) apply(t *testing.T, typ entity.MovementType, delta, cost, ref string) *appinv.ApplyResult {
	t.Helper()
	res, err := f.store.ApplyDelta(context.Background(), f.req(typ, delta, cost, ref))
	require.NoError(t, err)
	return res
}

func (f *fixture) balance(t *testing.T, variationID, locationID string) decimal.Decimal {
	t.Helper()
	q, err := f.store.GetBalance(context.Background(), variationID, locationID)
	require.NoError(t, err)
	return q
}

// tamper altera el saldo guardado sin pasar por el libro (simula una escritura por fuera).
func (f *fixture) tamper(t *testing.T, variationID, locationID string, delta decimal.Decimal) {
	t.Helper()
	err := f.mem.Run(context.Background(), repository.TxOptions{}, func(ctx context.Context, repos repository.Repos) error {
		b, err := repos.Balances.GetForUpdate(ctx, variationID, locationID)
		if err != nil {
			return err
		}
		v := b.Version
		b.Quantity = b.Quantity.Add(delta)
		return repos.Balances.UpdateVersioned(ctx, b, v)
	})
	require.NoError(t, err)
}
