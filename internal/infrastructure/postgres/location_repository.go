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

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de persistencia para bodegas.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva bodega.
func (r *LocationRepo) Create(ctx context.Context, loc *entity.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	loc.CreatedAt, loc.UpdatedAt = now, now
	query := `
		INSERT INTO locations (id, business_id, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		loc.ID, loc.BusinessID, loc.Name, nullable(loc.Address), loc.Active, loc.CreatedAt, loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// GetByID obtiene una bodega por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	query := `
		SELECT id, business_id, name, address, active, created_at, updated_at
		FROM locations WHERE id = $1`
	var loc entity.Location
	var address *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&loc.ID, &loc.BusinessID, &loc.Name, &address, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	loc.Address = deref(address)
	return &loc, nil
}

// ListByBusiness bodegas del negocio ordenadas por nombre.
func (r *LocationRepo) ListByBusiness(ctx context.Context, businessID string) ([]*entity.Location, error) {
	query := `
		SELECT id, business_id, name, address, active, created_at, updated_at
		FROM locations WHERE business_id = $1 ORDER BY name`
	rows, err := r.q.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var list []*entity.Location
	for rows.Next() {
		var loc entity.Location
		var address *string
		if err := rows.Scan(&loc.ID, &loc.BusinessID, &loc.Name, &address, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		loc.Address = deref(address)
		list = append(list, &loc)
	}
	return list, rows.Err()
}
