package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferHandler maneja los traslados entre bodegas (protegido).
type TransferHandler struct {
	uc     *transfer.UseCase
	ledger *inventory.Ledger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.UseCase, ledger *inventory.Ledger) *TransferHandler {
	return &TransferHandler{uc: uc, ledger: ledger}
}

// Create godoc
// @Summary      Crear traslado en borrador
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "origen, destino e ítems"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]transfer.CreateItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, transfer.CreateItemInput{VariationID: it.VariationID, Quantity: it.Quantity, SerialIDs: it.SerialIDs})
	}
	t, err := h.uc.Create(c.Context(), transfer.CreateTransferInput{
		BusinessID:     businessID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Notes:          in.Notes,
		ActorID:        userID,
		Items:          items,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(t))
}

// GetByID godoc
// @Summary      Obtener traslado por ID
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	t, err := h.uc.Get(c.Context(), businessID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toTransferResponse(t))
}

// Transition godoc
// @Summary      Avanzar el estado de un traslado
// @Description  sent descuenta el origen y completed acredita el destino; received solo en verifying -> verified.
// @Description  cancelled después de sent devuelve el stock y las unidades al origen.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true  "ID del traslado"
// @Param        body  body  dto.TransitionTransferRequest  true  "estado destino"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/transition [post]
func (h *TransferHandler) Transition(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.TransitionTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	t, err := h.uc.Transition(c.Context(), c.Params("id"), entity.TransferStatus(in.Target), transfer.TransitionPayload{
		BusinessID: businessID,
		ActorID:    userID,
		Note:       in.Note,
		Received:   in.Received,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toTransferResponse(t))
}

// Backfill godoc
// @Summary      Reparar filas faltantes del libro de un traslado
// @Description  Solo admin o auditor. Aplica transfer_out/transfer_in faltantes como movimientos correctivos.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.BackfillReportResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/backfill [post]
func (h *TransferHandler) Backfill(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	report, err := h.ledger.BackfillTransfer(c.Context(), businessID, c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.BackfillReportResponse{
		ReferenceType: report.ReferenceType,
		ReferenceID:   report.ReferenceID,
		Applied:       make([]dto.MovementResponse, 0, len(report.Applied)),
		AlreadyFine:   report.AlreadyFine,
		GeneratedAt:   report.GeneratedAt,
	}
	for i := range report.Applied {
		out.Applied = append(out.Applied, toMovementResponse(&report.Applied[i]))
	}
	return c.JSON(out)
}
