package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserta.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `seq, id, business_id, product_id, variation_id, location_id, type, delta,
	balance_after, unit_cost, reference_type, reference_id, actor_id, reason, notes, corrective, created_at`

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var actor, reason, notes *string
	err := row.Scan(
		&m.Seq, &m.ID, &m.BusinessID, &m.ProductID, &m.VariationID, &m.LocationID, &m.Type, &m.Delta,
		&m.BalanceAfter, &m.UnitCost, &m.ReferenceType, &m.ReferenceID, &actor, &reason, &notes,
		&m.Corrective, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ActorID, m.Reason, m.Notes = deref(actor), deref(reason), deref(notes)
	return &m, nil
}

// Create inserta el movimiento; la clave de evento duplicada se reporta como conflicto de concurrencia.
func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO stock_movements (id, business_id, product_id, variation_id, location_id, type, delta,
			balance_after, unit_cost, reference_type, reference_id, actor_id, reason, notes, corrective, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.BusinessID, m.ProductID, m.VariationID, m.LocationID, m.Type, m.Delta,
		m.BalanceAfter, m.UnitCost, m.ReferenceType, m.ReferenceID,
		nullable(m.ActorID), nullable(m.Reason), nullable(m.Notes), m.Corrective, m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return mapError("create stock movement", err)
	}
	return nil
}

// FindByKey busca el movimiento de un evento de negocio.
func (r *MovementRepo) FindByKey(ctx context.Context, key entity.MovementKey) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE reference_type = $1 AND reference_id = $2 AND type = $3 AND variation_id = $4 AND location_id = $5`
	m, err := scanMovement(r.q.QueryRow(ctx, query, key.ReferenceType, key.ReferenceID, key.Type, key.VariationID, key.LocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("find movement by key", err)
	}
	return m, nil
}

// ListByReference movimientos de una referencia en orden de inserción.
func (r *MovementRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE reference_type = $1 AND reference_id = $2 ORDER BY seq`
	return r.list(ctx, "list movements by reference", query, referenceType, referenceID)
}

// ListByPair libro completo de un par, Seq ascendente.
func (r *MovementRepo) ListByPair(ctx context.Context, variationID, locationID string) ([]entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE variation_id = $1 AND location_id = $2 ORDER BY seq`
	list, err := r.list(ctx, "list movements by pair", query, variationID, locationID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.StockMovement, len(list))
	for i, m := range list {
		out[i] = *m
	}
	return out, nil
}

// ListByPairPage página del libro de un par, más recientes primero.
func (r *MovementRepo) ListByPairPage(ctx context.Context, variationID, locationID string, limit, offset int) ([]*entity.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE variation_id = $1 AND location_id = $2
		ORDER BY seq DESC LIMIT $3 OFFSET $4`
	list, err := r.list(ctx, "list movements page", query, variationID, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.StockMovement{}
	}
	return list, nil
}

// SumByPair suma de deltas y cantidad de filas del par.
func (r *MovementRepo) SumByPair(ctx context.Context, variationID, locationID string) (repository.LedgerSum, error) {
	query := `SELECT COALESCE(SUM(delta), 0), COUNT(*) FROM stock_movements WHERE variation_id = $1 AND location_id = $2`
	var sum repository.LedgerSum
	if err := r.q.QueryRow(ctx, query, variationID, locationID).Scan(&sum.Total, &sum.Count); err != nil {
		return repository.LedgerSum{}, mapError("sum movements", err)
	}
	return sum, nil
}

// Watermark Seq máximo (global o de una bodega).
func (r *MovementRepo) Watermark(ctx context.Context, locationID string) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM stock_movements WHERE ($1 = '' OR location_id = $1)`
	var wm int64
	if err := r.q.QueryRow(ctx, query, locationID).Scan(&wm); err != nil {
		return 0, mapError("movement watermark", err)
	}
	return wm, nil
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
