package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyMovementRequest body para POST /api/inventory/movements.
// (reference_type, reference_id, type, variation_id, location_id) hace la solicitud idempotente.
type ApplyMovementRequest struct {
	VariationID   string          `json:"variation_id"`
	LocationID    string          `json:"location_id"`
	Type          string          `json:"type"`
	Delta         decimal.Decimal `json:"delta"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Reason        string          `json:"reason,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	AllowNegative bool            `json:"allow_negative,omitempty"`
}

// ApplyMovementResponse resultado de aplicar (o repetir) un movimiento.
type ApplyMovementResponse struct {
	Balance    decimal.Decimal `json:"balance"`
	MovementID string          `json:"movement_id"`
	Replayed   bool            `json:"replayed"`
}

// BalanceResponse saldo de un par variación/bodega.
type BalanceResponse struct {
	VariationID string          `json:"variation_id"`
	LocationID  string          `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// MovementResponse fila del libro de movimientos.
type MovementResponse struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	VariationID   string          `json:"variation_id"`
	LocationID    string          `json:"location_id"`
	Type          string          `json:"type"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	ActorID       string          `json:"actor_id"`
	Reason        string          `json:"reason,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Corrective    bool            `json:"corrective"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MovementListResponse página de movimientos, más recientes primero.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments.
type AdjustmentRequest struct {
	VariationID string          `json:"variation_id"`
	LocationID  string          `json:"location_id"`
	Delta       decimal.Decimal `json:"delta"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reason      string          `json:"reason"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

// CountRequest body para POST /api/inventory/counts (toma física).
type CountRequest struct {
	CountID     string          `json:"count_id"`
	VariationID string          `json:"variation_id"`
	LocationID  string          `json:"location_id"`
	Counted     decimal.Decimal `json:"counted"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reason      string          `json:"reason,omitempty"`
}

// ConsistencyReportResponse resultado de conciliar un par.
type ConsistencyReportResponse struct {
	VariationID    string                      `json:"variation_id"`
	LocationID     string                      `json:"location_id"`
	StoredBalance  decimal.Decimal             `json:"stored_balance"`
	LedgerSum      decimal.Decimal             `json:"ledger_sum"`
	Difference     decimal.Decimal             `json:"difference"`
	MovementCount  int                         `json:"movement_count"`
	BrokenChainSeq int64                       `json:"broken_chain_seq,omitempty"`
	Consistent     bool                        `json:"consistent"`
	Proposed       *ProposedCorrectionResponse `json:"proposed,omitempty"`
	CheckedAt      time.Time                   `json:"checked_at"`
}

// ProposedCorrectionResponse corrección sugerida pendiente de aprobación.
type ProposedCorrectionResponse struct {
	Resolution string          `json:"resolution"`
	Delta      decimal.Decimal `json:"delta"`
	Note       string          `json:"note"`
}

// ApproveCorrectionRequest body para POST /api/inventory/reconcile/approve.
// ExpectedDifference debe coincidir con la diferencia vigente; si cambió se rechaza.
type ApproveCorrectionRequest struct {
	VariationID        string          `json:"variation_id"`
	LocationID         string          `json:"location_id"`
	Resolution         string          `json:"resolution"`
	ExpectedDifference decimal.Decimal `json:"expected_difference"`
	Reason             string          `json:"reason"`
}

// ValuationLine valor de inventario de un par con un método de costeo.
type ValuationLine struct {
	VariationID string          `json:"variation_id"`
	LocationID  string          `json:"location_id"`
	Method      string          `json:"method"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// ValuationResponse respuesta de GET /api/inventory/valuation.
type ValuationResponse struct {
	Method     string          `json:"method"`
	LocationID string          `json:"location_id,omitempty"`
	Lines      []ValuationLine `json:"lines"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// BackfillReportResponse movimientos faltantes aplicados a un traslado.
type BackfillReportResponse struct {
	ReferenceType string             `json:"reference_type"`
	ReferenceID   string             `json:"reference_id"`
	Applied       []MovementResponse `json:"applied"`
	AlreadyFine   int                `json:"already_fine"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
