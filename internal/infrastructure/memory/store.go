package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

type pairKey struct {
	variationID string
	locationID  string
}

type serialKey struct {
	businessID   string
	serialNumber string
}

type state struct {
	balances        map[pairKey]entity.StockBalance
	movements       []entity.StockMovement
	movementByKey   map[entity.MovementKey]int
	movementSeq     int64
	serials         map[int64]entity.SerialUnit
	serialByNumber  map[serialKey]int64
	serialMovements []entity.SerialMovement
	serialSeq       int64
	serialMoveSeq   int64
	transfers       map[string]entity.Transfer
	customerReturns map[string]entity.CustomerReturn
	supplierReturns map[string]entity.SupplierReturn
	locations       map[string]entity.Location
	variations      map[string]entity.Variation
}

func newState() *state {
	return &state{
		balances:        make(map[pairKey]entity.StockBalance),
		movementByKey:   make(map[entity.MovementKey]int),
		serials:         make(map[int64]entity.SerialUnit),
		serialByNumber:  make(map[serialKey]int64),
		transfers:       make(map[string]entity.Transfer),
		customerReturns: make(map[string]entity.CustomerReturn),
		supplierReturns: make(map[string]entity.SupplierReturn),
		locations:       make(map[string]entity.Location),
		variations:      make(map[string]entity.Variation),
	}
}

// clone copia profunda; las filas del libro son inmutables y se copian por valor.
func (st *state) clone() *state {
	c := &state{
		balances:        make(map[pairKey]entity.StockBalance, len(st.balances)),
		movements:       append([]entity.StockMovement(nil), st.movements...),
		movementByKey:   make(map[entity.MovementKey]int, len(st.movementByKey)),
		movementSeq:     st.movementSeq,
		serials:         make(map[int64]entity.SerialUnit, len(st.serials)),
		serialByNumber:  make(map[serialKey]int64, len(st.serialByNumber)),
		serialMovements: append([]entity.SerialMovement(nil), st.serialMovements...),
		serialSeq:       st.serialSeq,
		serialMoveSeq:   st.serialMoveSeq,
		transfers:       make(map[string]entity.Transfer, len(st.transfers)),
		customerReturns: make(map[string]entity.CustomerReturn, len(st.customerReturns)),
		supplierReturns: make(map[string]entity.SupplierReturn, len(st.supplierReturns)),
		locations:       make(map[string]entity.Location, len(st.locations)),
		variations:      make(map[string]entity.Variation, len(st.variations)),
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	for k, v := range st.movementByKey {
		c.movementByKey[k] = v
	}
	for k, v := range st.serials {
		c.serials[k] = v
	}
	for k, v := range st.serialByNumber {
		c.serialByNumber[k] = v
	}
	for k, v := range st.transfers {
		c.transfers[k] = copyTransfer(v)
	}
	for k, v := range st.customerReturns {
		c.customerReturns[k] = copyCustomerReturn(v)
	}
	for k, v := range st.supplierReturns {
		c.supplierReturns[k] = copySupplierReturn(v)
	}
	for k, v := range st.locations {
		c.locations[k] = v
	}
	for k, v := range st.variations {
		c.variations[k] = v
	}
	return c
}

// Store implementación en memoria de los repositorios y del TxRunner.
// Las transacciones se serializan con un mutex y trabajan sobre una copia del estado que
// solo reemplaza al original si fn termina sin error.
type Store struct {
	mu    sync.Mutex
	state *state

	// conflicts cantidad de UpdateVersioned que fallarán con conflicto (simulación de carreras).
	conflicts int
}

var _ repository.TxRunner = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) Run(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, repos repository.Repos) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, s.repos(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transacción abortada: %w", err)
	}
	s.state = work
	return nil
}

func (s *Store) repos(st *state) repository.Repos {
	return repository.Repos{
		Balances:   &balanceRepo{st: st, store: s},
		Movements:  &movementRepo{st: st},
		Serials:    &serialRepo{st: st},
		Transfers:  &transferRepo{st: st},
		Returns:    &returnRepo{st: st},
		Locations:  &locationRepo{st: st},
		Variations: &variationRepo{st: st},
	}
}

// InjectConflicts hace que las próximas n actualizaciones versionadas fallen con
// ErrConcurrencyConflict.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

func (s *Store) takeConflict() bool {
	if s.conflicts > 0 {
		s.conflicts--
		return true
	}
	return false
}

// AddLocation registra una bodega (fuera de transacción, para seed y tests).
func (s *Store) AddLocation(loc entity.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = now
	}
	loc.UpdatedAt = now
	s.state.locations[loc.ID] = loc
}

// AddVariation registra una variación (fuera de transacción, para seed y tests).
func (s *Store) AddVariation(v entity.Variation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	s.state.variations[v.ID] = v
}

// MovementCount total de filas del libro.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.movements)
}

func conflictf(format string, args ...any) error {
	return &domain.StockError{Kind: domain.ErrConcurrencyConflict, Detail: fmt.Sprintf(format, args...)}
}

func copyTransfer(t entity.Transfer) entity.Transfer {
	items := make([]entity.TransferItem, len(t.Items))
	for i, it := range t.Items {
		if it.ReceivedQuantity != nil {
			q := *it.ReceivedQuantity
			it.ReceivedQuantity = &q
		}
		it.SerialIDs = append([]int64(nil), it.SerialIDs...)
		items[i] = it
	}
	t.Items = items
	t.History = append([]entity.TransferEvent(nil), t.History...)
	return t
}

func copyItems(items []entity.ReturnItem) []entity.ReturnItem {
	out := make([]entity.ReturnItem, len(items))
	for i, it := range items {
		it.SerialIDs = append([]int64(nil), it.SerialIDs...)
		out[i] = it
	}
	return out
}

func copyCustomerReturn(r entity.CustomerReturn) entity.CustomerReturn {
	r.Items = copyItems(r.Items)
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		r.ApprovedAt = &at
	}
	return r
}

func copySupplierReturn(r entity.SupplierReturn) entity.SupplierReturn {
	r.Items = copyItems(r.Items)
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		r.ApprovedAt = &at
	}
	return r
}
