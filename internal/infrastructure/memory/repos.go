package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

type balanceRepo struct {
	st    *state
	store *Store
}

func (r *balanceRepo) Get(_ context.Context, variationID, locationID string) (*entity.StockBalance, error) {
	b, ok := r.st.balances[pairKey{variationID, locationID}]
	if !ok {
		return &entity.StockBalance{VariationID: variationID, LocationID: locationID, Quantity: decimal.Zero}, nil
	}
	return &b, nil
}

func (r *balanceRepo) GetForUpdate(_ context.Context, variationID, locationID string) (*entity.StockBalance, error) {
	key := pairKey{variationID, locationID}
	b, ok := r.st.balances[key]
	if !ok {
		b = entity.StockBalance{VariationID: variationID, LocationID: locationID, Quantity: decimal.Zero, UpdatedAt: time.Now().UTC()}
		r.st.balances[key] = b
	}
	return &b, nil
}

func (r *balanceRepo) UpdateVersioned(_ context.Context, balance *entity.StockBalance, expectedVersion int64) error {
	key := pairKey{balance.VariationID, balance.LocationID}
	current, ok := r.st.balances[key]
	if !ok || current.Version != expectedVersion || r.store.takeConflict() {
		return conflictf("saldo %s/%s modificado por otra transacción", balance.VariationID, balance.LocationID)
	}
	balance.Version = expectedVersion + 1
	r.st.balances[key] = *balance
	return nil
}

func (r *balanceRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.StockBalance, error) {
	out := make([]*entity.StockBalance, 0)
	for k, b := range r.st.balances {
		if locationID != "" && k.locationID != locationID {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].VariationID < out[j].VariationID
	})
	return out, nil
}

type movementRepo struct {
	st *state
}

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	key := m.Key()
	if _, exists := r.st.movementByKey[key]; exists {
		return conflictf("movimiento duplicado %s/%s %s", m.ReferenceType, m.ReferenceID, m.Type)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.st.movementSeq++
	m.Seq = r.st.movementSeq
	r.st.movements = append(r.st.movements, *m)
	r.st.movementByKey[key] = len(r.st.movements) - 1
	return nil
}

func (r *movementRepo) FindByKey(_ context.Context, key entity.MovementKey) (*entity.StockMovement, error) {
	idx, ok := r.st.movementByKey[key]
	if !ok {
		return nil, nil
	}
	m := r.st.movements[idx]
	return &m, nil
}

func (r *movementRepo) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := range r.st.movements {
		m := r.st.movements[i]
		if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *movementRepo) ListByPair(_ context.Context, variationID, locationID string) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.st.movements {
		if m.VariationID == variationID && m.LocationID == locationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *movementRepo) ListByPairPage(ctx context.Context, variationID, locationID string, limit, offset int) ([]*entity.StockMovement, error) {
	all, _ := r.ListByPair(ctx, variationID, locationID)
	out := []*entity.StockMovement{}
	for i := len(all) - 1 - offset; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		m := all[i]
		out = append(out, &m)
	}
	return out, nil
}

func (r *movementRepo) SumByPair(ctx context.Context, variationID, locationID string) (repository.LedgerSum, error) {
	all, _ := r.ListByPair(ctx, variationID, locationID)
	sum := repository.LedgerSum{Total: decimal.Zero, Count: len(all)}
	for _, m := range all {
		sum.Total = sum.Total.Add(m.Delta)
	}
	return sum, nil
}

func (r *movementRepo) Watermark(_ context.Context, locationID string) (int64, error) {
	if locationID == "" {
		return r.st.movementSeq, nil
	}
	var wm int64
	for _, m := range r.st.movements {
		if m.LocationID == locationID && m.Seq > wm {
			wm = m.Seq
		}
	}
	return wm, nil
}

type serialRepo struct {
	st *state
}

func (r *serialRepo) Create(_ context.Context, u *entity.SerialUnit) error {
	key := serialKey{u.BusinessID, u.SerialNumber}
	if _, exists := r.st.serialByNumber[key]; exists {
		return &domain.StockError{Kind: domain.ErrConflict, VariationID: u.VariationID, Detail: fmt.Sprintf("número de serie %s ya registrado", u.SerialNumber)}
	}
	r.st.serialSeq++
	u.ID = r.st.serialSeq
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.st.serials[u.ID] = *u
	r.st.serialByNumber[key] = u.ID
	return nil
}

func (r *serialRepo) GetByID(_ context.Context, id int64) (*entity.SerialUnit, error) {
	u, ok := r.st.serials[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *serialRepo) GetForUpdate(ctx context.Context, id int64) (*entity.SerialUnit, error) {
	return r.GetByID(ctx, id)
}

func (r *serialRepo) GetBySerialNumber(ctx context.Context, businessID, serialNumber string) (*entity.SerialUnit, error) {
	id, ok := r.st.serialByNumber[serialKey{businessID, serialNumber}]
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *serialRepo) Update(_ context.Context, u *entity.SerialUnit) error {
	if _, ok := r.st.serials[u.ID]; !ok {
		return domain.NotFoundf("unidad serializada %d", u.ID)
	}
	u.UpdatedAt = time.Now().UTC()
	r.st.serials[u.ID] = *u
	return nil
}

func (r *serialRepo) CreateMovement(_ context.Context, m *entity.SerialMovement) error {
	if m.SerialNumberID <= 0 {
		return domain.Validationf("serial_number_id inválido: %d", m.SerialNumberID)
	}
	if _, ok := r.st.serials[m.SerialNumberID]; !ok {
		return domain.NotFoundf("unidad serializada %d", m.SerialNumberID)
	}
	r.st.serialMoveSeq++
	m.ID = r.st.serialMoveSeq
	if m.MovedAt.IsZero() {
		m.MovedAt = time.Now().UTC()
	}
	r.st.serialMovements = append(r.st.serialMovements, *m)
	return nil
}

func (r *serialRepo) ListMovements(_ context.Context, serialID int64) ([]*entity.SerialMovement, error) {
	var out []*entity.SerialMovement
	for i := range r.st.serialMovements {
		m := r.st.serialMovements[i]
		if m.SerialNumberID == serialID {
			out = append(out, &m)
		}
	}
	return out, nil
}

type transferRepo struct {
	st *state
}

func (r *transferRepo) Create(_ context.Context, t *entity.Transfer) error {
	if _, exists := r.st.transfers[t.ID]; exists {
		return &domain.StockError{Kind: domain.ErrConflict, Detail: fmt.Sprintf("traslado %s ya existe", t.ID)}
	}
	r.st.transfers[t.ID] = copyTransfer(*t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	t, ok := r.st.transfers[id]
	if !ok {
		return nil, nil
	}
	c := copyTransfer(t)
	return &c, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.Transfer) error {
	if _, ok := r.st.transfers[t.ID]; !ok {
		return domain.NotFoundf("traslado %s", t.ID)
	}
	r.st.transfers[t.ID] = copyTransfer(*t)
	return nil
}

type returnRepo struct {
	st *state
}

func (r *returnRepo) CreateCustomerReturn(_ context.Context, ret *entity.CustomerReturn) error {
	r.st.customerReturns[ret.ID] = copyCustomerReturn(*ret)
	return nil
}

func (r *returnRepo) GetCustomerReturnForUpdate(_ context.Context, id string) (*entity.CustomerReturn, error) {
	ret, ok := r.st.customerReturns[id]
	if !ok {
		return nil, nil
	}
	c := copyCustomerReturn(ret)
	return &c, nil
}

func (r *returnRepo) UpdateCustomerReturn(_ context.Context, ret *entity.CustomerReturn) error {
	if _, ok := r.st.customerReturns[ret.ID]; !ok {
		return domain.NotFoundf("devolución %s", ret.ID)
	}
	r.st.customerReturns[ret.ID] = copyCustomerReturn(*ret)
	return nil
}

func (r *returnRepo) CreateSupplierReturn(_ context.Context, ret *entity.SupplierReturn) error {
	r.st.supplierReturns[ret.ID] = copySupplierReturn(*ret)
	return nil
}

func (r *returnRepo) GetSupplierReturnForUpdate(_ context.Context, id string) (*entity.SupplierReturn, error) {
	ret, ok := r.st.supplierReturns[id]
	if !ok {
		return nil, nil
	}
	c := copySupplierReturn(ret)
	return &c, nil
}

func (r *returnRepo) UpdateSupplierReturn(_ context.Context, ret *entity.SupplierReturn) error {
	if _, ok := r.st.supplierReturns[ret.ID]; !ok {
		return domain.NotFoundf("devolución %s", ret.ID)
	}
	r.st.supplierReturns[ret.ID] = copySupplierReturn(*ret)
	return nil
}

type locationRepo struct {
	st *state
}

func (r *locationRepo) Create(_ context.Context, loc *entity.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	loc.CreatedAt, loc.UpdatedAt = now, now
	r.st.locations[loc.ID] = *loc
	return nil
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	loc, ok := r.st.locations[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (r *locationRepo) ListByBusiness(_ context.Context, businessID string) ([]*entity.Location, error) {
	var out []*entity.Location
	for _, loc := range r.st.locations {
		if loc.BusinessID == businessID {
			loc := loc
			out = append(out, &loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type variationRepo struct {
	st *state
}

func (r *variationRepo) Create(_ context.Context, v *entity.Variation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	r.st.variations[v.ID] = *v
	return nil
}

func (r *variationRepo) GetByID(_ context.Context, id string) (*entity.Variation, error) {
	v, ok := r.st.variations[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
