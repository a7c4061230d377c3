package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado del traslado entre bodegas.
type TransferStatus string

// Estados del traslado, en orden. cancelled es terminal y se alcanza desde cualquier estado previo a completed.
const (
	TransferDraft     TransferStatus = "draft"
	TransferSubmitted TransferStatus = "submitted"
	TransferChecked   TransferStatus = "checked"
	TransferApproved  TransferStatus = "approved"
	TransferSent      TransferStatus = "sent"
	TransferArrived   TransferStatus = "arrived"
	TransferVerifying TransferStatus = "verifying"
	TransferVerified  TransferStatus = "verified"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Transfer traslado de stock de una bodega a otra.
type Transfer struct {
	ID             string
	BusinessID     string
	FromLocationID string
	ToLocationID   string
	Status         TransferStatus
	Items          []TransferItem
	Notes          string
	CreatedBy      string
	History        []TransferEvent
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransferItem línea del traslado.
// ReceivedQuantity es nil mientras no se verifique la recepción.
type TransferItem struct {
	ID               string
	ProductID        string
	VariationID      string
	Quantity         decimal.Decimal
	ReceivedQuantity *decimal.Decimal
	ReceiptAssumed   bool // la recepción se completó con la cantidad enviada por política
	HasDiscrepancy   bool
	UnitCost         decimal.Decimal // costo en origen al momento del envío
	SerialIDs        []int64
}

// TransferEvent registro de cada transición (quién, cuándo, desde/hacia).
type TransferEvent struct {
	From    TransferStatus
	To      TransferStatus
	ActorID string
	At      time.Time
	Note    string
}
