package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	FromLocationID string                      `json:"from_location_id"`
	ToLocationID   string                      `json:"to_location_id"`
	Notes          string                      `json:"notes,omitempty"`
	Items          []CreateTransferItemRequest `json:"items"`
}

// CreateTransferItemRequest línea de un traslado nuevo.
type CreateTransferItemRequest struct {
	VariationID string          `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	SerialIDs   []int64         `json:"serial_ids,omitempty"`
}

// TransitionTransferRequest body para POST /api/transfers/:id/transition.
// Received solo aplica en verifying -> verified (variation_id -> cantidad recibida).
type TransitionTransferRequest struct {
	Target   string                     `json:"target"`
	Note     string                     `json:"note,omitempty"`
	Received map[string]decimal.Decimal `json:"received,omitempty"`
}

// TransferResponse traslado con ítems e historial.
type TransferResponse struct {
	ID             string                  `json:"id"`
	FromLocationID string                  `json:"from_location_id"`
	ToLocationID   string                  `json:"to_location_id"`
	Status         string                  `json:"status"`
	Notes          string                  `json:"notes,omitempty"`
	CreatedBy      string                  `json:"created_by"`
	Items          []TransferItemResponse  `json:"items"`
	History        []TransferEventResponse `json:"history"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// TransferItemResponse línea del traslado.
type TransferItemResponse struct {
	ID               string           `json:"id"`
	ProductID        string           `json:"product_id"`
	VariationID      string           `json:"variation_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	ReceivedQuantity *decimal.Decimal `json:"received_quantity,omitempty"`
	ReceiptAssumed   bool             `json:"receipt_assumed"`
	HasDiscrepancy   bool             `json:"has_discrepancy"`
	UnitCost         decimal.Decimal  `json:"unit_cost"`
	SerialIDs        []int64          `json:"serial_ids,omitempty"`
}

// TransferEventResponse transición registrada.
type TransferEventResponse struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
	Note    string    `json:"note,omitempty"`
}
