package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/returns"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
)

// Roles que pueden aprobar correcciones y reparar traslados.
const (
	RoleAdmin   = "admin"
	RoleAuditor = "auditor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Store     *inventory.BalanceStore
	Ledger    *inventory.Ledger
	Valuation *inventory.ValuationEngine
	Transfers *transfer.UseCase
	Serials   *serial.Registry
	Returns   *returns.UseCase
	Report    *pdf.ReconciliationReportGenerator
	// Metrics handler Prometheus; nil no expone /metrics.
	Metrics   http.Handler
	JWTSecret string
	AppName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	auditors := RequireRole(RoleAdmin, RoleAuditor)

	// Inventario: saldos, libro, conciliación y valuación
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Store, deps.Ledger, deps.Valuation, deps.Report)
	inv.Post("/movements", inventoryHandler.ApplyMovement)
	inv.Get("/movements", inventoryHandler.ListMovements)
	inv.Get("/balances/:variation_id/:location_id", inventoryHandler.GetBalance)
	inv.Post("/adjustments", inventoryHandler.Adjust)
	inv.Post("/counts", inventoryHandler.Count)
	inv.Get("/reconcile/location/:location_id", inventoryHandler.ReconcileLocation)
	inv.Get("/reconcile/:variation_id/:location_id", inventoryHandler.Reconcile)
	inv.Post("/reconcile/approve", auditors, inventoryHandler.ApproveCorrection)
	inv.Get("/valuation", inventoryHandler.Valuation)

	// Traslados
	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers, deps.Ledger)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/transition", transferHandler.Transition)
	transfers.Post("/:id/backfill", auditors, transferHandler.Backfill)

	// Unidades serializadas
	serials := api.Group("/serials")
	serialHandler := NewSerialHandler(deps.Serials)
	serials.Post("/", serialHandler.Register)
	serials.Get("/by-number/:serial_number", serialHandler.Lookup)
	serials.Get("/:id", serialHandler.GetByID)
	serials.Post("/:id/transition", serialHandler.Transition)

	// Devoluciones
	rets := api.Group("/returns")
	returnsHandler := NewReturnsHandler(deps.Returns)
	rets.Post("/customer", returnsHandler.CreateCustomer)
	rets.Post("/customer/:id/approve", returnsHandler.ApproveCustomer)
	rets.Post("/customer/:id/reject", returnsHandler.RejectCustomer)
	rets.Post("/supplier", returnsHandler.CreateSupplier)
	rets.Post("/supplier/:id/approve", returnsHandler.ApproveSupplier)
}
