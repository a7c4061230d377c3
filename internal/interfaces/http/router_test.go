package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/returns"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: API completa sobre el store en memoria
// ──────────────────────────────────────────────────────────────────────────────

const (
	locA = "loc-a"
	locB = "loc-b"
	varA = "var-a"
	varS = "var-s"
)

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T) apiFixture {
	t.Helper()
	mem := memory.New()
	mem.AddLocation(entity.Location{ID: locA, BusinessID: testBusinessID, Name: "Bodega A", Active: true})
	mem.AddLocation(entity.Location{ID: locB, BusinessID: testBusinessID, Name: "Bodega B", Active: true})
	mem.AddVariation(entity.Variation{ID: varA, BusinessID: testBusinessID, ProductID: "prod-a", SKU: "SKU-A"})
	mem.AddVariation(entity.Variation{ID: varS, BusinessID: testBusinessID, ProductID: "prod-s", SKU: "SKU-S", Serialized: true})

	m := metrics.New(metrics.Config{})
	store := inventory.NewBalanceStore(mem, nil, inventory.DefaultPolicy(), nil, m)
	ledger := inventory.NewLedger(store, nil, m)
	valuation := inventory.NewValuationEngine(store, nil, nil)
	serials := serial.NewRegistry(store, nil, m)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Store:     store,
		Ledger:    ledger,
		Valuation: valuation,
		Transfers: transfer.NewUseCase(store, valuation, serials, transfer.Config{}, nil, m),
		Serials:   serials,
		Returns:   returns.NewUseCase(store, serials, nil),
		Metrics:   m.Handler(),
		JWTSecret: testJWTSecret,
		AppName:   "inventario-ledger-test",
	})
	return apiFixture{app: app, store: mem}
}

func (f apiFixture) call(t *testing.T, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func movement(typ string, delta int64, ref string) dto.ApplyMovementRequest {
	return dto.ApplyMovementRequest{
		VariationID:   varA,
		LocationID:    locA,
		Type:          typ,
		Delta:         decimal.NewFromInt(delta),
		UnitCost:      decimal.NewFromInt(5),
		ReferenceType: "test",
		ReferenceID:   ref,
	}
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas públicas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_HealthYMetricasSinToken(t *testing.T) {
	f := newAPI(t)

	resp, _ := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.call(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRouter_ApiExigeToken(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locA, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos y saldos
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryHandler_MovimientoIdempotente(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")

	resp, body := f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	first := decode[dto.ApplyMovementResponse](t, body)
	assert.True(t, first.Balance.Equal(decimal.NewFromInt(10)))
	assert.False(t, first.Replayed)

	resp, body = f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	second := decode[dto.ApplyMovementResponse](t, body)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.MovementID, second.MovementID)
	assert.Equal(t, 1, f.store.MovementCount())

	resp, body = f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locA, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bal := decode[dto.BalanceResponse](t, body)
	assert.True(t, bal.Quantity.Equal(decimal.NewFromInt(10)))
}

func TestInventoryHandler_StockInsuficienteDevuelve409ConPar(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 2, "po-1"))

	resp, body := f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("sale", -3, "fv-1"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody := decode[dto.ErrorResponse](t, body)
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody.Code)
	assert.Equal(t, varA, errBody.VariationID)
	assert.Equal(t, locA, errBody.LocationID)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestInventoryHandler_TipoDesconocidoDevuelve400(t *testing.T) {
	f := newAPI(t)
	resp, body := f.call(t, http.MethodPost, "/api/inventory/movements", tokenForRole(t, "bodeguero"), movement("teleport", 1, "x-1"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, body).Code)
}

func TestInventoryHandler_MovimientosDeProcesoDevuelven400(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))

	resp, body := f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("transfer_out", -5, "tr-1"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, body).Code)

	forged := movement("sale", -5, "tr-1")
	forged.ReferenceType = "transfer"
	resp, _ = f.call(t, http.MethodPost, "/api/inventory/movements", auth, forged)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, f.store.MovementCount())
}

func TestInventoryHandler_OtroNegocioNoVeElSaldo(t *testing.T) {
	f := newAPI(t)
	f.call(t, http.MethodPost, "/api/inventory/movements", tokenForRole(t, "bodeguero"), movement("purchase", 4, "po-1"))

	intruso := tokenFor(t, "00000000-0000-0000-0000-00000000dead", "admin")
	resp, _ := f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locA, intruso, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.call(t, http.MethodGet, "/api/inventory/movements?variation_id="+varA+"&location_id="+locA, intruso, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryHandler_ListaMovimientosMasRecientesPrimero(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("opening_stock", 11, "open"))
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 1, "po-1"))
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-2"))

	resp, body := f.call(t, http.MethodGet, "/api/inventory/movements?variation_id="+varA+"&location_id="+locA+"&limit=2", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	list := decode[dto.MovementListResponse](t, body)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "po-2", list.Items[0].ReferenceID)
	assert.Equal(t, 2, list.Page.Limit)
	assert.True(t, list.Items[0].BalanceAfter.Equal(decimal.NewFromInt(22)))
}

func TestInventoryHandler_ConteoFisico(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))

	resp, body := f.call(t, http.MethodPost, "/api/inventory/counts", auth, dto.CountRequest{
		CountID: "cnt-1", VariationID: varA, LocationID: locA, Counted: decimal.NewFromInt(7),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.True(t, decode[dto.ApplyMovementResponse](t, body).Balance.Equal(decimal.NewFromInt(7)))

	same := dto.CountRequest{CountID: "cnt-2", VariationID: varA, LocationID: locA, Counted: decimal.NewFromInt(7)}
	resp, body = f.call(t, http.MethodPost, "/api/inventory/counts", auth, same)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.NotEmpty(t, decode[dto.ApplyMovementResponse](t, body).MovementID, "sin diferencia queda un ajuste en cero")

	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("sale", -2, "fv-1"))
	resp, body = f.call(t, http.MethodPost, "/api/inventory/counts", auth, same)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	replay := decode[dto.ApplyMovementResponse](t, body)
	assert.True(t, replay.Replayed)
	assert.True(t, replay.Balance.Equal(decimal.NewFromInt(7)), "la respuesta repite el resultado original")

	resp, body = f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locA, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.BalanceResponse](t, body).Quantity.Equal(decimal.NewFromInt(5)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Conciliación
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryHandler_ConciliaParConsistente(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "auditor")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 3, "po-1"))

	resp, body := f.call(t, http.MethodGet, "/api/inventory/reconcile/"+varA+"/"+locA, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	report := decode[dto.ConsistencyReportResponse](t, body)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.MovementCount)
}

func TestInventoryHandler_ConciliacionDeBodegaEnPDF(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "auditor")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 3, "po-1"))

	resp, body := f.call(t, http.MethodGet, "/api/inventory/reconcile/location/"+locA, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reports := decode[[]dto.ConsistencyReportResponse](t, body)
	require.Len(t, reports, 1)

	resp, body = f.call(t, http.MethodGet, "/api/inventory/reconcile/location/"+locA+"?format=pdf", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestInventoryHandler_AprobarCorreccionRequiereAuditor(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodPost, "/api/inventory/reconcile/approve", tokenForRole(t, "bodeguero"), dto.ApproveCorrectionRequest{
		VariationID: varA, LocationID: locA, Resolution: "trust_ledger", Reason: "x",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryHandler_AprobarParConsistenteEsConflicto(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "admin")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 3, "po-1"))

	resp, body := f.call(t, http.MethodPost, "/api/inventory/reconcile/approve", auth, dto.ApproveCorrectionRequest{
		VariationID: varA, LocationID: locA, Resolution: "trust_ledger", Reason: "revisión",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decode[dto.ErrorResponse](t, body).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Valuación
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryHandler_ValuacionMetodoInvalido(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/inventory/valuation?method=random", tokenForRole(t, "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInventoryHandler_ValuacionFIFO(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "admin")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))

	resp, body := f.call(t, http.MethodGet, "/api/inventory/valuation?method=fifo&location_id="+locA, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	val := decode[dto.ValuationResponse](t, body)
	assert.Equal(t, "FIFO", val.Method)
	require.Len(t, val.Lines, 1)
	assert.True(t, val.TotalValue.Equal(decimal.NewFromInt(50)), val.TotalValue.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransferHandler_FlujoCompleto(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))

	resp, body := f.call(t, http.MethodPost, "/api/transfers", auth, dto.CreateTransferRequest{
		FromLocationID: locA,
		ToLocationID:   locB,
		Items:          []dto.CreateTransferItemRequest{{VariationID: varA, Quantity: decimal.NewFromInt(5)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	tr := decode[dto.TransferResponse](t, body)
	assert.Equal(t, "draft", tr.Status)

	for _, target := range []string{"submitted", "checked", "approved", "sent", "arrived", "verifying", "verified", "completed"} {
		resp, body = f.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/transition", auth, dto.TransitionTransferRequest{Target: target})
		require.Equal(t, http.StatusOK, resp.StatusCode, target+": "+string(body))
	}
	tr = decode[dto.TransferResponse](t, body)
	assert.Equal(t, "completed", tr.Status)
	assert.Len(t, tr.History, 8)

	resp, body = f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locB, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.BalanceResponse](t, body).Quantity.Equal(decimal.NewFromInt(5)))
}

func TestTransferHandler_SaltoDeEstadoEsConflicto(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	f.call(t, http.MethodPost, "/api/inventory/movements", auth, movement("purchase", 10, "po-1"))
	_, body := f.call(t, http.MethodPost, "/api/transfers", auth, dto.CreateTransferRequest{
		FromLocationID: locA,
		ToLocationID:   locB,
		Items:          []dto.CreateTransferItemRequest{{VariationID: varA, Quantity: decimal.NewFromInt(5)}},
	})
	tr := decode[dto.TransferResponse](t, body)

	resp, body := f.call(t, http.MethodPost, "/api/transfers/"+tr.ID+"/transition", auth, dto.TransitionTransferRequest{Target: "sent"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, body).Code)
}

func TestTransferHandler_TrasladoInexistente(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/transfers/no-existe", tokenForRole(t, "bodeguero"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Unidades serializadas
// ──────────────────────────────────────────────────────────────────────────────

func TestSerialHandler_RegistroVentaYRastro(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")

	resp, body := f.call(t, http.MethodPost, "/api/serials", auth, dto.RegisterSerialsRequest{
		VariationID:   varS,
		LocationID:    locA,
		PurchaseCost:  decimal.NewFromInt(900),
		ReferenceType: "purchase_order",
		ReferenceID:   "po-9",
		SerialNumbers: []string{"IMEI-1", "IMEI-2"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	units := decode[[]dto.SerialUnitResponse](t, body)
	require.Len(t, units, 2)
	assert.Equal(t, "in_stock", units[0].Status)

	_, body = f.call(t, http.MethodGet, "/api/inventory/balances/"+varS+"/"+locA, auth, nil)
	assert.True(t, decode[dto.BalanceResponse](t, body).Quantity.Equal(decimal.NewFromInt(2)))

	id := fmt.Sprint(units[0].ID)
	resp, body = f.call(t, http.MethodPost, "/api/serials/"+id+"/transition", auth, dto.SerialTransitionRequest{
		Status: "sold", ReferenceType: "sale", ReferenceID: "sale-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "sold", decode[dto.SerialUnitResponse](t, body).Status)

	resp, body = f.call(t, http.MethodGet, "/api/serials/"+id, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	detail := decode[dto.SerialDetailResponse](t, body)
	require.Len(t, detail.History, 2)
	assert.Equal(t, "sale", detail.History[1].MovementType)

	resp, body = f.call(t, http.MethodGet, "/api/serials/by-number/IMEI-2", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, units[1].ID, decode[dto.SerialUnitResponse](t, body).ID)
}

func TestSerialHandler_ErroresDeTransicionYDuplicado(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")
	register := dto.RegisterSerialsRequest{
		VariationID: varS, LocationID: locA, ReferenceType: "purchase_order", ReferenceID: "po-1",
		SerialNumbers: []string{"IMEI-1"},
	}
	resp, body := f.call(t, http.MethodPost, "/api/serials", auth, register)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	id := fmt.Sprint(decode[[]dto.SerialUnitResponse](t, body)[0].ID)

	register.ReferenceID = "po-2"
	resp, body = f.call(t, http.MethodPost, "/api/serials", auth, register)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decode[dto.ErrorResponse](t, body).Code)

	resp, body = f.call(t, http.MethodPost, "/api/serials/"+id+"/transition", auth, dto.SerialTransitionRequest{Status: "damaged"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, body).Code)

	resp, body = f.call(t, http.MethodPost, "/api/serials/"+id+"/transition", auth, dto.SerialTransitionRequest{Status: "in_transit", ToLocationID: locB})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, body).Code)

	resp, body = f.call(t, http.MethodPost, "/api/serials/"+id+"/transition", auth, dto.SerialTransitionRequest{Status: "sold", ToLocationID: "no-existe"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, body).Code)

	resp, _ = f.call(t, http.MethodGet, "/api/serials/abc", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.call(t, http.MethodGet, "/api/serials/999", auth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones
// ──────────────────────────────────────────────────────────────────────────────

func TestReturnsHandler_DevolucionDeClienteAprobada(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")

	resp, body := f.call(t, http.MethodPost, "/api/returns/customer", auth, dto.CreateCustomerReturnRequest{
		LocationID: locA,
		SaleID:     "sale-1",
		Items: []dto.ReturnItemRequest{{
			VariationID: varA, Quantity: decimal.NewFromInt(2), Condition: "resellable", UnitCost: decimal.NewFromInt(5),
		}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	ret := decode[dto.ReturnResponse](t, body)
	assert.Equal(t, "pending", ret.Status)

	resp, body = f.call(t, http.MethodPost, "/api/returns/customer/"+ret.ID+"/approve", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "approved", decode[dto.ReturnResponse](t, body).Status)

	_, body = f.call(t, http.MethodGet, "/api/inventory/balances/"+varA+"/"+locA, auth, nil)
	assert.True(t, decode[dto.BalanceResponse](t, body).Quantity.Equal(decimal.NewFromInt(2)))
}

func TestReturnsHandler_DevolucionAProveedorSinStock(t *testing.T) {
	f := newAPI(t)
	auth := tokenForRole(t, "bodeguero")

	resp, body := f.call(t, http.MethodPost, "/api/returns/supplier", auth, dto.CreateSupplierReturnRequest{
		LocationID: locA,
		SupplierID: "sup-1",
		Items:      []dto.ReturnItemRequest{{VariationID: varA, Quantity: decimal.NewFromInt(1)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	ret := decode[dto.ReturnResponse](t, body)

	resp, body = f.call(t, http.MethodPost, "/api/returns/supplier/"+ret.ID+"/approve", auth, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, body).Code)
}
