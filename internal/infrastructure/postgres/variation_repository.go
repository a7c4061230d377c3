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

var _ repository.VariationRepository = (*VariationRepo)(nil)

// VariationRepo implementación del puerto VariationRepository sobre PostgreSQL.
type VariationRepo struct {
	q Querier
}

// NewVariationRepository construye el adaptador de persistencia para variaciones. Pasar pool o tx (Querier).
func NewVariationRepository(q Querier) *VariationRepo {
	return &VariationRepo{q: q}
}

// Create persiste una variación.
func (r *VariationRepo) Create(ctx context.Context, v *entity.Variation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	query := `
		INSERT INTO variations (id, business_id, product_id, sku, name, serialized, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		v.ID, v.BusinessID, v.ProductID, nullable(v.SKU), nullable(v.Name), v.Serialized, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("variación %s ya existe: %w", v.ID, err)
		}
		return fmt.Errorf("insert variation: %w", err)
	}
	return nil
}

// GetByID obtiene una variación; nil si no existe.
func (r *VariationRepo) GetByID(ctx context.Context, id string) (*entity.Variation, error) {
	query := `
		SELECT id, business_id, product_id, sku, name, serialized, created_at, updated_at
		FROM variations WHERE id = $1`
	var v entity.Variation
	var sku, name *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.BusinessID, &v.ProductID, &sku, &name, &v.Serialized, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variation: %w", err)
	}
	v.SKU, v.Name = deref(sku), deref(name)
	return &v, nil
}
