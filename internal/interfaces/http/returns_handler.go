package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/returns"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ReturnsHandler maneja devoluciones de clientes y a proveedores (protegido).
type ReturnsHandler struct {
	uc *returns.UseCase
}

// NewReturnsHandler construye el handler.
func NewReturnsHandler(uc *returns.UseCase) *ReturnsHandler {
	return &ReturnsHandler{uc: uc}
}

func toItemInputs(items []dto.ReturnItemRequest) []returns.ItemInput {
	out := make([]returns.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, returns.ItemInput{
			VariationID: it.VariationID,
			Quantity:    it.Quantity,
			Condition:   entity.ItemCondition(it.Condition),
			UnitCost:    it.UnitCost,
			SerialIDs:   it.SerialIDs,
		})
	}
	return out
}

// CreateCustomer godoc
// @Summary      Registrar devolución de cliente (pendiente)
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCustomerReturnRequest  true  "venta e ítems"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/returns/customer [post]
func (h *ReturnsHandler) CreateCustomer(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateCustomerReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.uc.CreateCustomerReturn(c.Context(), returns.CreateCustomerReturnInput{
		BusinessID: businessID,
		LocationID: in.LocationID,
		SaleID:     in.SaleID,
		Notes:      in.Notes,
		ActorID:    userID,
		Items:      toItemInputs(in.Items),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCustomerReturnResponse(r))
}

// ApproveCustomer godoc
// @Summary      Aprobar devolución de cliente
// @Description  Solo los ítems revendibles vuelven al saldo; los serializados pasan a returned, damaged o defective.
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la devolución"
// @Success      200  {object}  dto.ReturnResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/returns/customer/{id}/approve [post]
func (h *ReturnsHandler) ApproveCustomer(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	r, err := h.uc.ApproveCustomerReturn(c.Context(), businessID, c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toCustomerReturnResponse(r))
}

// RejectCustomer godoc
// @Summary      Rechazar devolución de cliente
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la devolución"
// @Param        body  body  object  false  "reason"
// @Success      200   {object}  dto.ReturnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns/customer/{id}/reject [post]
func (h *ReturnsHandler) RejectCustomer(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	r, err := h.uc.RejectCustomerReturn(c.Context(), businessID, c.Params("id"), userID, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toCustomerReturnResponse(r))
}

// CreateSupplier godoc
// @Summary      Registrar devolución a proveedor (pendiente)
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSupplierReturnRequest  true  "proveedor e ítems"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/returns/supplier [post]
func (h *ReturnsHandler) CreateSupplier(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateSupplierReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.uc.CreateSupplierReturn(c.Context(), returns.CreateSupplierReturnInput{
		BusinessID:      businessID,
		LocationID:      in.LocationID,
		SupplierID:      in.SupplierID,
		WarrantyClaimID: in.WarrantyClaimID,
		Notes:           in.Notes,
		ActorID:         userID,
		Items:           toItemInputs(in.Items),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSupplierReturnResponse(r))
}

// ApproveSupplier godoc
// @Summary      Aprobar devolución a proveedor
// @Description  Descuenta el saldo de la bodega; falla con 409 si no alcanza.
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la devolución"
// @Success      200  {object}  dto.ReturnResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/returns/supplier/{id}/approve [post]
func (h *ReturnsHandler) ApproveSupplier(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	r, err := h.uc.ApproveSupplierReturn(c.Context(), businessID, c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSupplierReturnResponse(r))
}
