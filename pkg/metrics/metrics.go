package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contadores del motor de inventario.
// Todos los métodos aceptan receptor nil para poder omitir métricas en tests.
type Metrics struct {
	registry *prometheus.Registry

	MovementsApplied       *prometheus.CounterVec
	IdempotentReplays      *prometheus.CounterVec
	InsufficientStock      *prometheus.CounterVec
	TxRetries              prometheus.Counter
	TxFailures             *prometheus.CounterVec
	ReconcileDiscrepancies prometheus.Counter
	CorrectiveMovements    *prometheus.CounterVec
	TransferTransitions    *prometheus.CounterVec
	SerialTransitions      *prometheus.CounterVec
}

// Config configuración de métricas.
type Config struct {
	Namespace string
	Subsystem string
}

// New registra las métricas en un registro propio (más las de Go y del proceso).
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "inventory"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "ledger"
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}
	}

	m := &Metrics{
		registry:               registry,
		MovementsApplied:       prometheus.NewCounterVec(opts("movements_applied_total", "Movimientos de stock registrados por tipo"), []string{"type"}),
		IdempotentReplays:      prometheus.NewCounterVec(opts("idempotent_replays_total", "Solicitudes repetidas que no volvieron a aplicarse"), []string{"type"}),
		InsufficientStock:      prometheus.NewCounterVec(opts("insufficient_stock_total", "Movimientos rechazados por stock insuficiente"), []string{"type"}),
		TxRetries:              prometheus.NewCounter(opts("tx_retries_total", "Reintentos de transacción por conflicto de concurrencia")),
		TxFailures:             prometheus.NewCounterVec(opts("tx_failures_total", "Transacciones abortadas por tipo de error"), []string{"kind"}),
		ReconcileDiscrepancies: prometheus.NewCounter(opts("reconcile_discrepancies_total", "Pares con saldo distinto a la suma del libro")),
		CorrectiveMovements:    prometheus.NewCounterVec(opts("corrective_movements_total", "Movimientos correctivos (backfill o conciliación)"), []string{"source"}),
		TransferTransitions:    prometheus.NewCounterVec(opts("transfer_transitions_total", "Transiciones de traslado por estado destino"), []string{"to"}),
		SerialTransitions:      prometheus.NewCounterVec(opts("serial_transitions_total", "Transiciones de unidades serializadas por estado destino"), []string{"to"}),
	}
	registry.MustRegister(
		m.MovementsApplied, m.IdempotentReplays, m.InsufficientStock, m.TxRetries, m.TxFailures,
		m.ReconcileDiscrepancies, m.CorrectiveMovements, m.TransferTransitions, m.SerialTransitions,
	)
	return m
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry devuelve el registro (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) MovementApplied(movementType string) {
	if m == nil {
		return
	}
	m.MovementsApplied.WithLabelValues(movementType).Inc()
}

func (m *Metrics) Replay(movementType string) {
	if m == nil {
		return
	}
	m.IdempotentReplays.WithLabelValues(movementType).Inc()
}

func (m *Metrics) Insufficient(movementType string) {
	if m == nil {
		return
	}
	m.InsufficientStock.WithLabelValues(movementType).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.TxRetries.Inc()
}

func (m *Metrics) TxFailed(kind string) {
	if m == nil {
		return
	}
	m.TxFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Discrepancy() {
	if m == nil {
		return
	}
	m.ReconcileDiscrepancies.Inc()
}

func (m *Metrics) Corrective(source string) {
	if m == nil {
		return
	}
	m.CorrectiveMovements.WithLabelValues(source).Inc()
}

func (m *Metrics) TransferTransition(to string) {
	if m == nil {
		return
	}
	m.TransferTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) SerialTransition(to string) {
	if m == nil {
		return
	}
	m.SerialTransitions.WithLabelValues(to).Inc()
}
