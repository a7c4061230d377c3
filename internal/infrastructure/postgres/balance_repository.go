package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `variation_id, location_id, quantity, version, updated_at`

func scanBalance(row pgx.Row) (*entity.StockBalance, error) {
	var b entity.StockBalance
	if err := row.Scan(&b.VariationID, &b.LocationID, &b.Quantity, &b.Version, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Get obtiene el saldo actual; sin fila devuelve cero en versión 0.
func (r *BalanceRepo) Get(ctx context.Context, variationID, locationID string) (*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances WHERE variation_id = $1 AND location_id = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, variationID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockBalance{VariationID: variationID, LocationID: locationID, Quantity: decimal.Zero}, nil
		}
		return nil, mapError("get balance", err)
	}
	return b, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE).
func (r *BalanceRepo) GetForUpdate(ctx context.Context, variationID, locationID string) (*entity.StockBalance, error) {
	insert := `
		INSERT INTO stock_balances (variation_id, location_id, quantity, version, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (variation_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, variationID, locationID); err != nil {
		return nil, mapError("init balance", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE variation_id = $1 AND location_id = $2
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, variationID, locationID))
	if err != nil {
		return nil, mapError("get balance for update", err)
	}
	return b, nil
}

// UpdateVersioned guarda la cantidad solo si la versión no cambió.
func (r *BalanceRepo) UpdateVersioned(ctx context.Context, balance *entity.StockBalance, expectedVersion int64) error {
	query := `
		UPDATE stock_balances
		SET quantity = $3, version = version + 1, updated_at = now()
		WHERE variation_id = $1 AND location_id = $2 AND version = $4
		RETURNING version, updated_at`
	err := r.q.QueryRow(ctx, query, balance.VariationID, balance.LocationID, balance.Quantity, expectedVersion).
		Scan(&balance.Version, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.StockError{
				Kind:        domain.ErrConcurrencyConflict,
				VariationID: balance.VariationID,
				LocationID:  balance.LocationID,
				Detail:      fmt.Sprintf("versión %d desactualizada", expectedVersion),
			}
		}
		return mapError("update balance", err)
	}
	return nil
}

// ListByLocation saldos de una bodega ordenados por variación; vacío lista todas.
func (r *BalanceRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE ($1 = '' OR location_id = $1)
		ORDER BY location_id, variation_id`
	rows, err := r.q.Query(ctx, query, locationID)
	if err != nil {
		return nil, mapError("list balances", err)
	}
	defer rows.Close()

	var list []*entity.StockBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
