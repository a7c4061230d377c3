package inventory

import "github.com/jhoicas/inventario-ledger/internal/domain/entity"

// serialTransitions transiciones permitidas por estado de origen.
// warranty_return se alcanza desde cualquier estado (reclamo de garantía).
var serialTransitions = map[entity.SerialStatus][]entity.SerialStatus{
	entity.SerialInStock:   {entity.SerialInTransit, entity.SerialSold, entity.SerialReturned},
	entity.SerialInTransit: {entity.SerialInStock},
	entity.SerialSold:      {entity.SerialInStock, entity.SerialReturned, entity.SerialDamaged, entity.SerialDefective},
	entity.SerialReturned:  {entity.SerialInStock},
}

// CanTransitionSerial indica si una unidad puede pasar de from a to.
func CanTransitionSerial(from, to entity.SerialStatus) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if to == entity.SerialWarrantyReturn {
		return true
	}
	for _, s := range serialTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransferOwnedSerial indica si la transición solo la puede hacer un traslado: la salida a
// in_transit al enviar y cualquier salida de in_transit al recibir.
func TransferOwnedSerial(from, to entity.SerialStatus) bool {
	return to == entity.SerialInTransit || from == entity.SerialInTransit
}

// SerialStatusForCondition estado de la unidad tras una devolución de cliente aprobada.
func SerialStatusForCondition(c entity.ItemCondition) entity.SerialStatus {
	switch c {
	case entity.ConditionDamaged:
		return entity.SerialDamaged
	case entity.ConditionDefective:
		return entity.SerialDefective
	default:
		return entity.SerialReturned
	}
}

// SerialMovementType tipo de movimiento que se anota en el rastro cuando el caller no lo indica.
func SerialMovementType(from, to entity.SerialStatus) entity.MovementType {
	switch {
	case to == entity.SerialInTransit:
		return entity.MovementTransferOut
	case from == entity.SerialInTransit && to == entity.SerialInStock:
		return entity.MovementTransferIn
	case to == entity.SerialSold:
		return entity.MovementSale
	case from == entity.SerialSold && to == entity.SerialInStock:
		return entity.MovementSaleVoid
	case from == entity.SerialSold:
		return entity.MovementCustomerReturn
	case to == entity.SerialWarrantyReturn, from == entity.SerialInStock && to == entity.SerialReturned:
		return entity.MovementSupplierReturn
	default:
		return entity.MovementAdjustment
	}
}
