package inventory

import "github.com/jhoicas/inventario-ledger/internal/domain/entity"

// transferFlow orden lineal del traslado; no se permite saltar estados.
var transferFlow = []entity.TransferStatus{
	entity.TransferDraft,
	entity.TransferSubmitted,
	entity.TransferChecked,
	entity.TransferApproved,
	entity.TransferSent,
	entity.TransferArrived,
	entity.TransferVerifying,
	entity.TransferVerified,
	entity.TransferCompleted,
}

func transferIndex(s entity.TransferStatus) int {
	for i, v := range transferFlow {
		if v == s {
			return i
		}
	}
	return -1
}

// NextTransferStatus devuelve el estado siguiente en el flujo; ok=false en estados terminales.
func NextTransferStatus(s entity.TransferStatus) (entity.TransferStatus, bool) {
	i := transferIndex(s)
	if i < 0 || i == len(transferFlow)-1 {
		return "", false
	}
	return transferFlow[i+1], true
}

// CanTransition indica si from -> to es una transición válida del traslado.
func CanTransition(from, to entity.TransferStatus) bool {
	if to == entity.TransferCancelled {
		return CanCancel(from)
	}
	next, ok := NextTransferStatus(from)
	return ok && next == to
}

// CanCancel cualquier estado antes de completed. Desde sent la cancelación exige revertir el
// descuento del origen (ver CancelNeedsReversal).
func CanCancel(s entity.TransferStatus) bool {
	i := transferIndex(s)
	return i >= 0 && i < transferIndex(entity.TransferCompleted)
}

// CancelNeedsReversal indica si cancelar desde s debe devolver el stock al origen.
func CancelNeedsReversal(s entity.TransferStatus) bool {
	return CanCancel(s) && StockDeducted(s)
}

// StockDeducted indica si el origen ya fue descontado (estado sent o posterior, sin cancelar).
func StockDeducted(s entity.TransferStatus) bool {
	return transferIndex(s) >= transferIndex(entity.TransferSent)
}

// IsValidTransferStatus indica si el estado existe.
func IsValidTransferStatus(s entity.TransferStatus) bool {
	return s == entity.TransferCancelled || transferIndex(s) >= 0
}
