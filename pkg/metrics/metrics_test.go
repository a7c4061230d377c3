package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/metrics"
)

func TestMetrics_ReceptorNil(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.MovementApplied("sale")
		m.Replay("sale")
		m.Insufficient("sale")
		m.Retry()
		m.TxFailed("conflict")
		m.Discrepancy()
		m.Corrective("reconciliation")
		m.TransferTransition("sent")
		m.SerialTransition("sold")
	})
}

func TestMetrics_Contadores(t *testing.T) {
	m := metrics.New(metrics.Config{})
	m.MovementApplied("sale")
	m.MovementApplied("sale")
	m.MovementApplied("purchase")
	m.Retry()
	m.Discrepancy()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MovementsApplied.WithLabelValues("sale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MovementsApplied.WithLabelValues("purchase")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileDiscrepancies))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New(metrics.Config{Namespace: "inv", Subsystem: "test"})
	m.TransferTransition("completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `inv_test_transfer_transitions_total{to="completed"} 1`)
}
