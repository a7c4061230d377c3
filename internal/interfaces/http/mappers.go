package http

import (
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID,
		Seq:           m.Seq,
		VariationID:   m.VariationID,
		LocationID:    m.LocationID,
		Type:          string(m.Type),
		Delta:         m.Delta,
		BalanceAfter:  m.BalanceAfter,
		UnitCost:      m.UnitCost,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		ActorID:       m.ActorID,
		Reason:        m.Reason,
		Notes:         m.Notes,
		Corrective:    m.Corrective,
		CreatedAt:     m.CreatedAt,
	}
}

func toConsistencyResponse(r *entity.ConsistencyReport) dto.ConsistencyReportResponse {
	out := dto.ConsistencyReportResponse{
		VariationID:    r.VariationID,
		LocationID:     r.LocationID,
		StoredBalance:  r.StoredBalance,
		LedgerSum:      r.LedgerSum,
		Difference:     r.Difference,
		MovementCount:  r.MovementCount,
		BrokenChainSeq: r.BrokenChainSeq,
		Consistent:     r.Consistent,
		CheckedAt:      r.CheckedAt,
	}
	if r.Proposed != nil {
		out.Proposed = &dto.ProposedCorrectionResponse{
			Resolution: string(r.Proposed.Resolution),
			Delta:      r.Proposed.Delta,
			Note:       r.Proposed.Note,
		}
	}
	return out
}

// ToConsistencyResponses reportes de conciliación en el formato de la API (también lo usa cmd/reconcile).
func ToConsistencyResponses(reports []*entity.ConsistencyReport) []dto.ConsistencyReportResponse {
	out := make([]dto.ConsistencyReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toConsistencyResponse(r))
	}
	return out
}

func toTransferResponse(t *entity.Transfer) dto.TransferResponse {
	out := dto.TransferResponse{
		ID:             t.ID,
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		Status:         string(t.Status),
		Notes:          t.Notes,
		CreatedBy:      t.CreatedBy,
		Items:          make([]dto.TransferItemResponse, 0, len(t.Items)),
		History:        make([]dto.TransferEventResponse, 0, len(t.History)),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	for _, it := range t.Items {
		out.Items = append(out.Items, dto.TransferItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			VariationID:      it.VariationID,
			Quantity:         it.Quantity,
			ReceivedQuantity: it.ReceivedQuantity,
			ReceiptAssumed:   it.ReceiptAssumed,
			HasDiscrepancy:   it.HasDiscrepancy,
			UnitCost:         it.UnitCost,
			SerialIDs:        it.SerialIDs,
		})
	}
	for _, ev := range t.History {
		out.History = append(out.History, dto.TransferEventResponse{
			From: string(ev.From), To: string(ev.To), ActorID: ev.ActorID, At: ev.At, Note: ev.Note,
		})
	}
	return out
}

func toSerialResponse(u *entity.SerialUnit) dto.SerialUnitResponse {
	return dto.SerialUnitResponse{
		ID:                u.ID,
		SerialNumber:      u.SerialNumber,
		VariationID:       u.VariationID,
		ProductID:         u.ProductID,
		Status:            string(u.Status),
		CurrentLocationID: u.CurrentLocationID,
		SupplierID:        u.SupplierID,
		PurchaseCost:      u.PurchaseCost,
		WarrantyStart:     u.WarrantyStart,
		WarrantyEnd:       u.WarrantyEnd,
		UpdatedAt:         u.UpdatedAt,
	}
}

func toSerialMovementResponse(m *entity.SerialMovement) dto.SerialMovementResponse {
	return dto.SerialMovementResponse{
		ID:             m.ID,
		SerialNumberID: m.SerialNumberID,
		MovementType:   string(m.MovementType),
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		FromStatus:     string(m.FromStatus),
		ToStatus:       string(m.ToStatus),
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		ActorID:        m.ActorID,
		MovedAt:        m.MovedAt,
	}
}

func toReturnItems(items []entity.ReturnItem) []dto.ReturnItemResponse {
	out := make([]dto.ReturnItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ReturnItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			Condition:   string(it.Condition),
			UnitCost:    it.UnitCost,
			SerialIDs:   it.SerialIDs,
		})
	}
	return out
}

func toCustomerReturnResponse(r *entity.CustomerReturn) dto.ReturnResponse {
	return dto.ReturnResponse{
		ID:         r.ID,
		Kind:       "customer",
		LocationID: r.LocationID,
		SaleID:     r.SaleID,
		Status:     string(r.Status),
		Notes:      r.Notes,
		Items:      toReturnItems(r.Items),
		CreatedBy:  r.CreatedBy,
		ApprovedBy: r.ApprovedBy,
		ApprovedAt: r.ApprovedAt,
		CreatedAt:  r.CreatedAt,
	}
}

func toSupplierReturnResponse(r *entity.SupplierReturn) dto.ReturnResponse {
	return dto.ReturnResponse{
		ID:              r.ID,
		Kind:            "supplier",
		LocationID:      r.LocationID,
		SupplierID:      r.SupplierID,
		WarrantyClaimID: r.WarrantyClaimID,
		Status:          string(r.Status),
		Notes:           r.Notes,
		Items:           toReturnItems(r.Items),
		CreatedBy:       r.CreatedBy,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
	}
}
