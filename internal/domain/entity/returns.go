package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemCondition estado físico de un artículo devuelto por un cliente.
type ItemCondition string

// Condiciones de devolución.
const (
	ConditionResellable ItemCondition = "resellable"
	ConditionDamaged    ItemCondition = "damaged"
	ConditionDefective  ItemCondition = "defective"
)

// IsValid indica si la condición pertenece al catálogo.
func (c ItemCondition) IsValid() bool {
	return c == ConditionResellable || c == ConditionDamaged || c == ConditionDefective
}

// ReturnStatus estado de una devolución.
type ReturnStatus string

// Estados de devolución.
const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

// ReturnItem línea de una devolución (cliente o proveedor).
type ReturnItem struct {
	ID          string
	ProductID   string
	VariationID string
	Quantity    decimal.Decimal
	Condition   ItemCondition
	UnitCost    decimal.Decimal
	SerialIDs   []int64
}

// CustomerReturn devolución de un cliente sobre una venta.
type CustomerReturn struct {
	ID         string
	BusinessID string
	LocationID string
	SaleID     string
	Status     ReturnStatus
	Items      []ReturnItem
	Notes      string
	CreatedBy  string
	ApprovedBy string
	ApprovedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SupplierReturn devolución a proveedor; WarrantyClaimID indica que nace de un reclamo de garantía.
type SupplierReturn struct {
	ID              string
	BusinessID      string
	LocationID      string
	SupplierID      string
	WarrantyClaimID string
	Status          ReturnStatus
	Items           []ReturnItem
	Notes           string
	CreatedBy       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
