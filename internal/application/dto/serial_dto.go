package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterSerialsRequest body para POST /api/serials (recepción de unidades).
type RegisterSerialsRequest struct {
	VariationID   string          `json:"variation_id"`
	LocationID    string          `json:"location_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	PurchaseCost  decimal.Decimal `json:"purchase_cost"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	SerialNumbers []string        `json:"serial_numbers"`
	WarrantyStart *time.Time      `json:"warranty_start,omitempty"`
	WarrantyEnd   *time.Time      `json:"warranty_end,omitempty"`
}

// SerialTransitionRequest body para POST /api/serials/:id/transition.
type SerialTransitionRequest struct {
	Status        string `json:"status"`
	ToLocationID  string `json:"to_location_id,omitempty"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

// SerialUnitResponse unidad serializada.
type SerialUnitResponse struct {
	ID                int64           `json:"id"`
	SerialNumber      string          `json:"serial_number"`
	VariationID       string          `json:"variation_id"`
	ProductID         string          `json:"product_id"`
	Status            string          `json:"status"`
	CurrentLocationID string          `json:"current_location_id"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	PurchaseCost      decimal.Decimal `json:"purchase_cost"`
	WarrantyStart     *time.Time      `json:"warranty_start,omitempty"`
	WarrantyEnd       *time.Time      `json:"warranty_end,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SerialMovementResponse entrada del rastro de una unidad.
type SerialMovementResponse struct {
	ID             int64     `json:"id"`
	SerialNumberID int64     `json:"serial_number_id"`
	MovementType   string    `json:"movement_type"`
	FromLocationID string    `json:"from_location_id,omitempty"`
	ToLocationID   string    `json:"to_location_id,omitempty"`
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceID    string    `json:"reference_id"`
	ActorID        string    `json:"actor_id"`
	MovedAt        time.Time `json:"moved_at"`
}

// SerialDetailResponse unidad con su historial.
type SerialDetailResponse struct {
	Unit    SerialUnitResponse       `json:"unit"`
	History []SerialMovementResponse `json:"history"`
}
