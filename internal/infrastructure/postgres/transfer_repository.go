package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados sobre PostgreSQL; ítems e historial viajan como JSONB en la cabecera.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

type transferItemDoc struct {
	ID               string           `json:"id"`
	ProductID        string           `json:"product_id"`
	VariationID      string           `json:"variation_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	ReceivedQuantity *decimal.Decimal `json:"received_quantity,omitempty"`
	ReceiptAssumed   bool             `json:"receipt_assumed,omitempty"`
	HasDiscrepancy   bool             `json:"has_discrepancy,omitempty"`
	UnitCost         decimal.Decimal  `json:"unit_cost"`
	SerialIDs        []int64          `json:"serial_ids,omitempty"`
}

type transferEventDoc struct {
	From    entity.TransferStatus `json:"from"`
	To      entity.TransferStatus `json:"to"`
	ActorID string                `json:"actor_id"`
	At      time.Time             `json:"at"`
	Note    string                `json:"note,omitempty"`
}

func encodeTransferDocs(t *entity.Transfer) (items, history []byte, err error) {
	itemDocs := make([]transferItemDoc, len(t.Items))
	for i, it := range t.Items {
		itemDocs[i] = transferItemDoc(it)
	}
	eventDocs := make([]transferEventDoc, len(t.History))
	for i, ev := range t.History {
		eventDocs[i] = transferEventDoc(ev)
	}
	if items, err = json.Marshal(itemDocs); err != nil {
		return nil, nil, fmt.Errorf("codificar ítems: %w", err)
	}
	if history, err = json.Marshal(eventDocs); err != nil {
		return nil, nil, fmt.Errorf("codificar historial: %w", err)
	}
	return items, history, nil
}

// Create inserta el traslado con sus ítems.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	items, history, err := encodeTransferDocs(t)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO transfers (id, business_id, from_location_id, to_location_id, status, items, history,
			notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.q.Exec(ctx, query,
		t.ID, t.BusinessID, t.FromLocationID, t.ToLocationID, t.Status, items, history,
		nullable(t.Notes), nullable(t.CreatedBy), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.StockError{Kind: domain.ErrConflict, Detail: fmt.Sprintf("traslado %s ya existe", t.ID), Err: err}
		}
		return mapError("create transfer", err)
	}
	return nil
}

// GetByID obtiene el traslado con ítems e historial; nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, "", id)
}

// GetForUpdate igual que GetByID bloqueando la cabecera.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.get(ctx, " FOR UPDATE", id)
}

func (r *TransferRepo) get(ctx context.Context, lock, id string) (*entity.Transfer, error) {
	query := `
		SELECT id, business_id, from_location_id, to_location_id, status, items, history, notes, created_by,
			created_at, updated_at
		FROM transfers WHERE id = $1` + lock
	var t entity.Transfer
	var items, history []byte
	var notes, createdBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.BusinessID, &t.FromLocationID, &t.ToLocationID, &t.Status, &items, &history,
		&notes, &createdBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get transfer", err)
	}
	t.Notes, t.CreatedBy = deref(notes), deref(createdBy)

	var itemDocs []transferItemDoc
	if err := json.Unmarshal(items, &itemDocs); err != nil {
		return nil, fmt.Errorf("decodificar ítems del traslado %s: %w", id, err)
	}
	var eventDocs []transferEventDoc
	if err := json.Unmarshal(history, &eventDocs); err != nil {
		return nil, fmt.Errorf("decodificar historial del traslado %s: %w", id, err)
	}
	t.Items = make([]entity.TransferItem, len(itemDocs))
	for i, d := range itemDocs {
		t.Items[i] = entity.TransferItem(d)
	}
	t.History = make([]entity.TransferEvent, len(eventDocs))
	for i, d := range eventDocs {
		t.History[i] = entity.TransferEvent(d)
	}
	return &t, nil
}

// Update guarda estado, ítems e historial.
func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	items, history, err := encodeTransferDocs(t)
	if err != nil {
		return err
	}
	query := `
		UPDATE transfers SET status = $2, items = $3, history = $4, notes = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, t.ID, t.Status, items, history, nullable(t.Notes), t.UpdatedAt)
	if err != nil {
		return mapError("update transfer", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("traslado %s", t.ID)
	}
	return nil
}
