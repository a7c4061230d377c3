package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SerialHandler maneja las unidades serializadas (protegido).
type SerialHandler struct {
	registry *serial.Registry
}

// NewSerialHandler construye el handler.
func NewSerialHandler(registry *serial.Registry) *SerialHandler {
	return &SerialHandler{registry: registry}
}

// Register godoc
// @Summary      Registrar unidades recibidas
// @Description  Crea las unidades en in_stock y suma su cantidad al saldo de la bodega.
// @Tags         serials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterSerialsRequest  true  "números de serie"
// @Success      201   {array}   dto.SerialUnitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/serials [post]
func (h *SerialHandler) Register(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RegisterSerialsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	units, err := h.registry.Register(c.Context(), serial.RegisterInput{
		BusinessID:    businessID,
		VariationID:   in.VariationID,
		LocationID:    in.LocationID,
		SupplierID:    in.SupplierID,
		PurchaseCost:  in.PurchaseCost,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		ActorID:       userID,
		SerialNumbers: in.SerialNumbers,
		WarrantyStart: in.WarrantyStart,
		WarrantyEnd:   in.WarrantyEnd,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SerialUnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, toSerialResponse(u))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Unidad serializada con su rastro
// @Tags         serials
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la unidad"
// @Success      200  {object}  dto.SerialDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/serials/{id} [get]
func (h *SerialHandler) GetByID(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser numérico"})
	}
	unit, err := h.registry.Get(c.Context(), businessID, int64(id))
	if err != nil {
		return respondError(c, err)
	}
	history, err := h.registry.History(c.Context(), businessID, int64(id))
	if err != nil {
		return respondError(c, err)
	}
	out := dto.SerialDetailResponse{Unit: toSerialResponse(unit), History: make([]dto.SerialMovementResponse, 0, len(history))}
	for _, m := range history {
		out.History = append(out.History, toSerialMovementResponse(m))
	}
	return c.JSON(out)
}

// Lookup godoc
// @Summary      Buscar unidad por número de serie
// @Tags         serials
// @Security     Bearer
// @Produce      json
// @Param        serial_number  path  string  true  "número de serie"
// @Success      200  {object}  dto.SerialUnitResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/serials/by-number/{serial_number} [get]
func (h *SerialHandler) Lookup(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	unit, err := h.registry.GetBySerialNumber(c.Context(), businessID, c.Params("serial_number"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSerialResponse(unit))
}

// Transition godoc
// @Summary      Cambiar estado de una unidad
// @Description  No modifica saldos; el movimiento de stock lo registra el documento que origina el cambio.
// @Description  in_transit pertenece a los traslados y to_location_id debe ser una bodega del negocio.
// @Tags         serials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                          true  "ID de la unidad"
// @Param        body  body  dto.SerialTransitionRequest  true  "estado destino"
// @Success      200   {object}  dto.SerialUnitResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/serials/{id}/transition [post]
func (h *SerialHandler) Transition(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser numérico"})
	}
	var in dto.SerialTransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	unit, err := h.registry.Transition(c.Context(), int64(id), entity.SerialStatus(in.Status), serial.TransitionInput{
		BusinessID:    businessID,
		ToLocationID:  in.ToLocationID,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		ActorID:       userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSerialResponse(unit))
}
