package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.SerialRepository = (*SerialRepo)(nil)

// SerialRepo unidades serializadas y su rastro sobre PostgreSQL.
type SerialRepo struct {
	q Querier
}

// NewSerialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSerialRepository(q Querier) *SerialRepo {
	return &SerialRepo{q: q}
}

const serialColumns = `id, serial_number, business_id, product_id, variation_id, status, current_location_id,
	supplier_id, purchase_cost, warranty_start, warranty_end, created_at, updated_at`

func scanSerial(row pgx.Row) (*entity.SerialUnit, error) {
	var u entity.SerialUnit
	var supplier *string
	err := row.Scan(
		&u.ID, &u.SerialNumber, &u.BusinessID, &u.ProductID, &u.VariationID, &u.Status, &u.CurrentLocationID,
		&supplier, &u.PurchaseCost, &u.WarrantyStart, &u.WarrantyEnd, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.SupplierID = deref(supplier)
	return &u, nil
}

// Create inserta la unidad y toma el ID de la secuencia.
func (r *SerialRepo) Create(ctx context.Context, u *entity.SerialUnit) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	query := `
		INSERT INTO serial_units (serial_number, business_id, product_id, variation_id, status, current_location_id,
			supplier_id, purchase_cost, warranty_start, warranty_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		u.SerialNumber, u.BusinessID, u.ProductID, u.VariationID, u.Status, u.CurrentLocationID,
		nullable(u.SupplierID), u.PurchaseCost, u.WarrantyStart, u.WarrantyEnd, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.StockError{Kind: domain.ErrConflict, VariationID: u.VariationID,
				Detail: fmt.Sprintf("número de serie %s ya registrado", u.SerialNumber), Err: err}
		}
		return mapError("create serial unit", err)
	}
	return nil
}

// GetByID obtiene una unidad; nil si no existe.
func (r *SerialRepo) GetByID(ctx context.Context, id int64) (*entity.SerialUnit, error) {
	return r.getOne(ctx, `SELECT `+serialColumns+` FROM serial_units WHERE id = $1`, id)
}

// GetForUpdate obtiene la unidad bloqueando la fila.
func (r *SerialRepo) GetForUpdate(ctx context.Context, id int64) (*entity.SerialUnit, error) {
	return r.getOne(ctx, `SELECT `+serialColumns+` FROM serial_units WHERE id = $1 FOR UPDATE`, id)
}

// GetBySerialNumber busca por número de serie dentro del negocio.
func (r *SerialRepo) GetBySerialNumber(ctx context.Context, businessID, serialNumber string) (*entity.SerialUnit, error) {
	return r.getOne(ctx, `SELECT `+serialColumns+` FROM serial_units WHERE business_id = $1 AND serial_number = $2`,
		businessID, serialNumber)
}

func (r *SerialRepo) getOne(ctx context.Context, query string, args ...any) (*entity.SerialUnit, error) {
	u, err := scanSerial(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get serial unit", err)
	}
	return u, nil
}

// Update guarda estado y ubicación de la unidad.
func (r *SerialRepo) Update(ctx context.Context, u *entity.SerialUnit) error {
	u.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE serial_units
		SET status = $2, current_location_id = $3, warranty_start = $4, warranty_end = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, u.ID, u.Status, u.CurrentLocationID, u.WarrantyStart, u.WarrantyEnd, u.UpdatedAt)
	if err != nil {
		return mapError("update serial unit", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("unidad serializada %d", u.ID)
	}
	return nil
}

// CreateMovement agrega una fila al rastro; la FK garantiza que la unidad exista.
func (r *SerialRepo) CreateMovement(ctx context.Context, m *entity.SerialMovement) error {
	if m.SerialNumberID <= 0 {
		return domain.Validationf("serial_number_id inválido: %d", m.SerialNumberID)
	}
	if m.MovedAt.IsZero() {
		m.MovedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO serial_movements (serial_number_id, movement_type, from_location_id, to_location_id,
			from_status, to_status, reference_type, reference_id, actor_id, moved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.SerialNumberID, m.MovementType, nullable(m.FromLocationID), nullable(m.ToLocationID),
		nullable(string(m.FromStatus)), m.ToStatus, nullable(m.ReferenceType), nullable(m.ReferenceID),
		nullable(m.ActorID), m.MovedAt,
	).Scan(&m.ID)
	if err != nil {
		return mapError("create serial movement", err)
	}
	return nil
}

// ListMovements rastro de una unidad en orden cronológico.
func (r *SerialRepo) ListMovements(ctx context.Context, serialID int64) ([]*entity.SerialMovement, error) {
	query := `
		SELECT id, serial_number_id, movement_type, from_location_id, to_location_id, from_status, to_status,
			reference_type, reference_id, actor_id, moved_at
		FROM serial_movements WHERE serial_number_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, serialID)
	if err != nil {
		return nil, mapError("list serial movements", err)
	}
	defer rows.Close()

	var list []*entity.SerialMovement
	for rows.Next() {
		var m entity.SerialMovement
		var fromLoc, toLoc, fromStatus, refType, refID, actor *string
		if err := rows.Scan(&m.ID, &m.SerialNumberID, &m.MovementType, &fromLoc, &toLoc, &fromStatus, &m.ToStatus,
			&refType, &refID, &actor, &m.MovedAt); err != nil {
			return nil, fmt.Errorf("scan serial movement: %w", err)
		}
		m.FromLocationID, m.ToLocationID = deref(fromLoc), deref(toLoc)
		m.FromStatus = entity.SerialStatus(deref(fromStatus))
		m.ReferenceType, m.ReferenceID, m.ActorID = deref(refType), deref(refID), deref(actor)
		list = append(list, &m)
	}
	return list, rows.Err()
}
