package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ReturnRepo devoluciones de clientes y a proveedores; las líneas se guardan como JSONB.
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

type returnItemDoc struct {
	ID          string               `json:"id"`
	ProductID   string               `json:"product_id"`
	VariationID string               `json:"variation_id"`
	Quantity    decimal.Decimal      `json:"quantity"`
	Condition   entity.ItemCondition `json:"condition,omitempty"`
	UnitCost    decimal.Decimal      `json:"unit_cost"`
	SerialIDs   []int64              `json:"serial_ids,omitempty"`
}

func encodeReturnItems(items []entity.ReturnItem) ([]byte, error) {
	docs := make([]returnItemDoc, len(items))
	for i, it := range items {
		docs[i] = returnItemDoc(it)
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("codificar líneas de devolución: %w", err)
	}
	return b, nil
}

func decodeReturnItems(raw []byte) ([]entity.ReturnItem, error) {
	var docs []returnItemDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decodificar líneas de devolución: %w", err)
	}
	items := make([]entity.ReturnItem, len(docs))
	for i, d := range docs {
		items[i] = entity.ReturnItem(d)
	}
	return items, nil
}

// CreateCustomerReturn inserta la devolución de cliente.
func (r *ReturnRepo) CreateCustomerReturn(ctx context.Context, ret *entity.CustomerReturn) error {
	items, err := encodeReturnItems(ret.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO customer_returns (id, business_id, location_id, sale_id, status, items, notes, created_by,
			approved_by, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query,
		ret.ID, ret.BusinessID, ret.LocationID, ret.SaleID, ret.Status, items, nullable(ret.Notes),
		nullable(ret.CreatedBy), nullable(ret.ApprovedBy), ret.ApprovedAt, ret.CreatedAt, ret.UpdatedAt,
	)
	return mapError("create customer return", err)
}

// GetCustomerReturnForUpdate obtiene y bloquea la devolución; nil si no existe.
func (r *ReturnRepo) GetCustomerReturnForUpdate(ctx context.Context, id string) (*entity.CustomerReturn, error) {
	query := `
		SELECT id, business_id, location_id, sale_id, status, items, notes, created_by, approved_by, approved_at,
			created_at, updated_at
		FROM customer_returns WHERE id = $1 FOR UPDATE`
	var ret entity.CustomerReturn
	var raw []byte
	var notes, createdBy, approvedBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&ret.ID, &ret.BusinessID, &ret.LocationID, &ret.SaleID, &ret.Status, &raw, &notes, &createdBy,
		&approvedBy, &ret.ApprovedAt, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get customer return", err)
	}
	ret.Notes, ret.CreatedBy, ret.ApprovedBy = deref(notes), deref(createdBy), deref(approvedBy)
	if ret.Items, err = decodeReturnItems(raw); err != nil {
		return nil, err
	}
	return &ret, nil
}

// UpdateCustomerReturn guarda estado y aprobación.
func (r *ReturnRepo) UpdateCustomerReturn(ctx context.Context, ret *entity.CustomerReturn) error {
	query := `
		UPDATE customer_returns SET status = $2, notes = $3, approved_by = $4, approved_at = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, ret.ID, ret.Status, nullable(ret.Notes), nullable(ret.ApprovedBy), ret.ApprovedAt, ret.UpdatedAt)
	if err != nil {
		return mapError("update customer return", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("devolución %s", ret.ID)
	}
	return nil
}

// CreateSupplierReturn inserta la devolución a proveedor.
func (r *ReturnRepo) CreateSupplierReturn(ctx context.Context, ret *entity.SupplierReturn) error {
	items, err := encodeReturnItems(ret.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO supplier_returns (id, business_id, location_id, supplier_id, warranty_claim_id, status, items,
			notes, created_by, approved_by, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.q.Exec(ctx, query,
		ret.ID, ret.BusinessID, ret.LocationID, ret.SupplierID, nullable(ret.WarrantyClaimID), ret.Status, items,
		nullable(ret.Notes), nullable(ret.CreatedBy), nullable(ret.ApprovedBy), ret.ApprovedAt, ret.CreatedAt, ret.UpdatedAt,
	)
	return mapError("create supplier return", err)
}

// GetSupplierReturnForUpdate obtiene y bloquea la devolución; nil si no existe.
func (r *ReturnRepo) GetSupplierReturnForUpdate(ctx context.Context, id string) (*entity.SupplierReturn, error) {
	query := `
		SELECT id, business_id, location_id, supplier_id, warranty_claim_id, status, items, notes, created_by,
			approved_by, approved_at, created_at, updated_at
		FROM supplier_returns WHERE id = $1 FOR UPDATE`
	var ret entity.SupplierReturn
	var raw []byte
	var claim, notes, createdBy, approvedBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&ret.ID, &ret.BusinessID, &ret.LocationID, &ret.SupplierID, &claim, &ret.Status, &raw, &notes,
		&createdBy, &approvedBy, &ret.ApprovedAt, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get supplier return", err)
	}
	ret.WarrantyClaimID, ret.Notes = deref(claim), deref(notes)
	ret.CreatedBy, ret.ApprovedBy = deref(createdBy), deref(approvedBy)
	if ret.Items, err = decodeReturnItems(raw); err != nil {
		return nil, err
	}
	return &ret, nil
}

// UpdateSupplierReturn guarda estado y aprobación.
func (r *ReturnRepo) UpdateSupplierReturn(ctx context.Context, ret *entity.SupplierReturn) error {
	query := `
		UPDATE supplier_returns SET status = $2, notes = $3, approved_by = $4, approved_at = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, ret.ID, ret.Status, nullable(ret.Notes), nullable(ret.ApprovedBy), ret.ApprovedAt, ret.UpdatedAt)
	if err != nil {
		return mapError("update supplier return", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("devolución %s", ret.ID)
	}
	return nil
}
