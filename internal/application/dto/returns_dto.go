package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnItemRequest línea de una devolución.
type ReturnItemRequest struct {
	VariationID string          `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Condition   string          `json:"condition,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SerialIDs   []int64         `json:"serial_ids,omitempty"`
}

// CreateCustomerReturnRequest body para POST /api/returns/customer.
type CreateCustomerReturnRequest struct {
	LocationID string              `json:"location_id"`
	SaleID     string              `json:"sale_id"`
	Notes      string              `json:"notes,omitempty"`
	Items      []ReturnItemRequest `json:"items"`
}

// CreateSupplierReturnRequest body para POST /api/returns/supplier.
type CreateSupplierReturnRequest struct {
	LocationID      string              `json:"location_id"`
	SupplierID      string              `json:"supplier_id"`
	WarrantyClaimID string              `json:"warranty_claim_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Items           []ReturnItemRequest `json:"items"`
}

// ReturnItemResponse línea de una devolución.
type ReturnItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	VariationID string          `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Condition   string          `json:"condition,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SerialIDs   []int64         `json:"serial_ids,omitempty"`
}

// ReturnResponse devolución de cliente o a proveedor.
type ReturnResponse struct {
	ID              string               `json:"id"`
	Kind            string               `json:"kind"` // customer | supplier
	LocationID      string               `json:"location_id"`
	SaleID          string               `json:"sale_id,omitempty"`
	SupplierID      string               `json:"supplier_id,omitempty"`
	WarrantyClaimID string               `json:"warranty_claim_id,omitempty"`
	Status          string               `json:"status"`
	Notes           string               `json:"notes,omitempty"`
	Items           []ReturnItemResponse `json:"items"`
	CreatedBy       string               `json:"created_by"`
	ApprovedBy      string               `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}
