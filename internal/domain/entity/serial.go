package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SerialStatus estado de una unidad serializada.
type SerialStatus string

// Estados de unidades serializadas.
const (
	SerialInStock        SerialStatus = "in_stock"
	SerialInTransit      SerialStatus = "in_transit"
	SerialSold           SerialStatus = "sold"
	SerialReturned       SerialStatus = "returned"
	SerialDamaged        SerialStatus = "damaged"
	SerialDefective      SerialStatus = "defective"
	SerialWarrantyReturn SerialStatus = "warranty_return"
)

// IsValid indica si el estado pertenece al catálogo.
func (s SerialStatus) IsValid() bool {
	switch s {
	case SerialInStock, SerialInTransit, SerialSold, SerialReturned,
		SerialDamaged, SerialDefective, SerialWarrantyReturn:
		return true
	}
	return false
}

// SerialUnit una unidad física identificada por número de serie. Nunca se elimina.
type SerialUnit struct {
	ID                int64
	SerialNumber      string
	BusinessID        string
	ProductID         string
	VariationID       string
	Status            SerialStatus
	CurrentLocationID string
	SupplierID        string
	PurchaseCost      decimal.Decimal
	WarrantyStart     *time.Time
	WarrantyEnd       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SerialMovement rastro de movimientos de una unidad serializada.
// SerialNumberID siempre es el ID persistido de la SerialUnit (> 0).
type SerialMovement struct {
	ID             int64
	SerialNumberID int64
	MovementType   MovementType
	FromLocationID string
	ToLocationID   string
	FromStatus     SerialStatus
	ToStatus       SerialStatus
	ReferenceType  string
	ReferenceID    string
	ActorID        string
	MovedAt        time.Time
}
