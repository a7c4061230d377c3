package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	"github.com/shopspring/decimal"
)

// InventoryHandler maneja saldos, libro de movimientos, conciliación y valuación (protegido).
type InventoryHandler struct {
	store     *inventory.BalanceStore
	ledger    *inventory.Ledger
	valuation *inventory.ValuationEngine
	report    *pdf.ReconciliationReportGenerator
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(store *inventory.BalanceStore, ledger *inventory.Ledger, valuation *inventory.ValuationEngine, report *pdf.ReconciliationReportGenerator) *InventoryHandler {
	if report == nil {
		report = pdf.NewReconciliationReportGenerator()
	}
	return &InventoryHandler{store: store, ledger: ledger, valuation: valuation, report: report}
}

// ApplyMovement godoc
// @Summary      Aplicar movimiento de inventario
// @Description  Idempotente por (reference_type, reference_id, type, variation_id, location_id).
// @Description  Solo purchase, purchase_return, sale, sale_void, opening_stock y adjustment; los traslados y devoluciones tienen sus propias rutas.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ApplyMovementRequest  true  "movimiento"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Success      200   {object}  dto.ApplyMovementResponse  "repetición de un movimiento ya aplicado"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) ApplyMovement(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ApplyMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.store.ApplyDelta(c.Context(), inventory.MovementRequest{
		BusinessID:    businessID,
		VariationID:   in.VariationID,
		LocationID:    in.LocationID,
		Type:          entity.MovementType(in.Type),
		Delta:         in.Delta,
		UnitCost:      in.UnitCost,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		ActorID:       userID,
		Reason:        in.Reason,
		Notes:         in.Notes,
		AllowNegative: in.AllowNegative,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(applyStatus(res)).JSON(toApplyResponse(res))
}

// GetBalance godoc
// @Summary      Saldo de una variación en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        variation_id  path  string  true  "variación"
// @Param        location_id   path  string  true  "bodega"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{variation_id}/{location_id} [get]
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	bal, err := h.store.BalanceOf(c.Context(), businessID, c.Params("variation_id"), c.Params("location_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{VariationID: bal.VariationID, LocationID: bal.LocationID, Quantity: bal.Quantity})
}

// ListMovements godoc
// @Summary      Libro de movimientos de un par, más recientes primero
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        variation_id  query  string  true   "variación"
// @Param        location_id   query  string  true   "bodega"
// @Param        limit         query  int     false  "máximo 200"
// @Param        offset        query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit/offset inválidos"})
	}
	page.DefaultPage()
	movs, err := h.ledger.ListMovements(c.Context(), businessID, c.Query("variation_id"), c.Query("location_id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(movs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, m := range movs {
		out.Items = append(out.Items, toMovementResponse(m))
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "delta con signo y motivo"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.store.Adjust(c.Context(), inventory.AdjustmentInput{
		BusinessID:  businessID,
		VariationID: in.VariationID,
		LocationID:  in.LocationID,
		Delta:       in.Delta,
		UnitCost:    in.UnitCost,
		Reason:      in.Reason,
		ReferenceID: in.ReferenceID,
		ActorID:     userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(applyStatus(res)).JSON(toApplyResponse(res))
}

// Count godoc
// @Summary      Registrar toma física
// @Description  Ajusta el saldo a la cantidad contada. Sin diferencia no genera movimiento.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CountRequest  true  "conteo"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/counts [post]
func (h *InventoryHandler) Count(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.store.Count(c.Context(), inventory.CountInput{
		BusinessID:  businessID,
		CountID:     in.CountID,
		VariationID: in.VariationID,
		LocationID:  in.LocationID,
		Counted:     in.Counted,
		UnitCost:    in.UnitCost,
		Reason:      in.Reason,
		ActorID:     userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(applyStatus(res)).JSON(toApplyResponse(res))
}

// Reconcile godoc
// @Summary      Conciliar saldo contra libro de un par
// @Description  Un par inconsistente responde 200 con consistent=false y la corrección propuesta.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        variation_id  path  string  true  "variación"
// @Param        location_id   path  string  true  "bodega"
// @Success      200  {object}  dto.ConsistencyReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reconcile/{variation_id}/{location_id} [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	report, err := h.ledger.ReconcileInBusiness(c.Context(), businessID, c.Params("variation_id"), c.Params("location_id"))
	if err != nil && !(errors.Is(err, domain.ErrConsistency) && report != nil) {
		return respondError(c, err)
	}
	return c.JSON(toConsistencyResponse(report))
}

// ReconcileLocation godoc
// @Summary      Conciliar todos los pares de una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Produce      application/pdf
// @Param        location_id  path   string  true   "bodega"
// @Param        format       query  string  false  "json (defecto) o pdf"
// @Success      200  {array}   dto.ConsistencyReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reconcile/location/{location_id} [get]
func (h *InventoryHandler) ReconcileLocation(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	res, err := h.ledger.ReconcileLocation(c.Context(), businessID, c.Params("location_id"))
	if err != nil {
		return respondError(c, err)
	}
	if strings.EqualFold(c.Query("format"), "pdf") {
		doc, err := h.report.Generate(c.Context(), pdf.ReportHeader{
			BusinessID:   businessID,
			LocationID:   res.Location.ID,
			LocationName: res.Location.Name,
			GeneratedBy:  userID,
			GeneratedAt:  time.Now().UTC(),
		}, res.Reports)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="conciliacion-`+res.Location.ID+`.pdf"`)
		return c.Send(doc)
	}
	return c.JSON(ToConsistencyResponses(res.Reports))
}

// ApproveCorrection godoc
// @Summary      Aprobar la corrección de una discrepancia
// @Description  Solo admin o auditor. expected_difference debe coincidir con la diferencia vigente.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ApproveCorrectionRequest  true  "resolución"
// @Success      201   {object}  dto.MovementResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reconcile/approve [post]
func (h *InventoryHandler) ApproveCorrection(c *fiber.Ctx) error {
	businessID, userID, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ApproveCorrectionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	mov, err := h.ledger.ApproveCorrection(c.Context(), inventory.CorrectionApproval{
		BusinessID:         businessID,
		VariationID:        in.VariationID,
		LocationID:         in.LocationID,
		Resolution:         entity.CorrectionResolution(in.Resolution),
		ExpectedDifference: in.ExpectedDifference,
		ActorID:            userID,
		Reason:             in.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// Valuation godoc
// @Summary      Valor del inventario por método de costeo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        method       query  string  false  "FIFO, LIFO o WEIGHTED_AVERAGE"
// @Param        location_id  query  string  false  "bodega; vacío = todo el negocio"
// @Success      200  {object}  dto.ValuationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/valuation [get]
func (h *InventoryHandler) Valuation(c *fiber.Ctx) error {
	businessID, _, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var method domaininv.ValuationMethod
	if raw := c.Query("method"); raw != "" {
		m, err := domaininv.ParseValuationMethod(raw)
		if err != nil {
			return respondError(c, domain.Validationf("%v", err))
		}
		method = m
	}
	locationID := c.Query("location_id")
	lines, err := h.valuation.Query(c.Context(), businessID, locationID, method)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.ValuationResponse{LocationID: locationID, Lines: lines, TotalValue: decimal.Zero}
	if out.Lines == nil {
		out.Lines = []dto.ValuationLine{}
	}
	out.Method = string(method)
	if method == "" {
		out.Method = string(h.store.Policy().DefaultMethod)
	}
	for _, l := range lines {
		out.TotalValue = out.TotalValue.Add(l.TotalValue)
	}
	return c.JSON(out)
}

func toApplyResponse(res *inventory.ApplyResult) dto.ApplyMovementResponse {
	return dto.ApplyMovementResponse{Balance: res.Balance, MovementID: res.MovementID, Replayed: res.Replayed}
}

// applyStatus 201 para un movimiento nuevo, 200 para repeticiones.
func applyStatus(res *inventory.ApplyResult) int {
	if res.Replayed {
		return fiber.StatusOK
	}
	return fiber.StatusCreated
}
