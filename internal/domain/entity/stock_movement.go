package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del libro de inventario.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementPurchase       MovementType = "purchase"
	MovementPurchaseReturn MovementType = "purchase_return"
	MovementSale           MovementType = "sale"
	MovementSaleVoid       MovementType = "sale_void"
	MovementTransferOut    MovementType = "transfer_out"
	MovementTransferIn     MovementType = "transfer_in"
	MovementCustomerReturn MovementType = "customer_return"
	MovementSupplierReturn MovementType = "supplier_return"
	MovementAdjustment     MovementType = "adjustment"
	MovementOpeningStock   MovementType = "opening_stock"
)

// MovementTypes lista todos los tipos válidos.
var MovementTypes = []MovementType{
	MovementPurchase, MovementPurchaseReturn, MovementSale, MovementSaleVoid,
	MovementTransferOut, MovementTransferIn, MovementCustomerReturn, MovementSupplierReturn,
	MovementAdjustment, MovementOpeningStock,
}

// IsValid indica si el tipo pertenece al catálogo.
func (t MovementType) IsValid() bool {
	for _, v := range MovementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsInbound tipos que solo pueden sumar stock.
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementPurchase, MovementSaleVoid, MovementTransferIn, MovementCustomerReturn, MovementOpeningStock:
		return true
	}
	return false
}

// IsOutbound tipos que solo pueden restar stock.
func (t MovementType) IsOutbound() bool {
	switch t {
	case MovementPurchaseReturn, MovementSale, MovementTransferOut, MovementSupplierReturn:
		return true
	}
	return false
}

// Tipos de referencia usados por los procesos internos.
const (
	ReferenceTransfer       = "transfer"
	ReferenceTransferCancel = "transfer_cancel"
	ReferenceCustomerReturn = "customer_return"
	ReferenceSupplierReturn = "supplier_return"
	ReferenceAdjustment     = "adjustment"
	ReferenceStockCount     = "stock_count"
	ReferenceReconciliation = "reconciliation"
)

// StockMovement es una fila inmutable del libro de movimientos.
// Delta positivo suma, negativo resta; BalanceAfter es el saldo resultante en ese par.
// (ReferenceType, ReferenceID, Type, VariationID, LocationID) identifica el evento de negocio.
type StockMovement struct {
	ID            string
	Seq           int64
	BusinessID    string
	ProductID     string
	VariationID   string
	LocationID    string
	Type          MovementType
	Delta         decimal.Decimal
	BalanceAfter  decimal.Decimal
	UnitCost      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Reason        string
	Notes         string
	Corrective    bool // generado por backfill o conciliación aprobada
	CreatedAt     time.Time
}

// MovementKey clave de idempotencia de un movimiento.
type MovementKey struct {
	ReferenceType string
	ReferenceID   string
	Type          MovementType
	VariationID   string
	LocationID    string
}

// Key devuelve la clave de idempotencia del movimiento.
func (m *StockMovement) Key() MovementKey {
	return MovementKey{
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Type:          m.Type,
		VariationID:   m.VariationID,
		LocationID:    m.LocationID,
	}
}
