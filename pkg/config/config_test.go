package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

// clearEnv deja vacías las variables que Load consulta; Viper trata el valor vacío como ausente.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "LEDGER_STORE", "LEDGER_CATALOG_PATH", "DATABASE_URL", "DB_HOST", "DB_PORT",
		"REDIS_ADDR", "KAFKA_BROKERS", "LEDGER_DEFAULT_COSTING_METHOD", "LEDGER_NEGATIVE_ALLOWED_TYPES",
		"LEDGER_TRANSFER_RECEIPT_FALLBACK", "LEDGER_TX_TIMEOUT_SECONDS", "LEDGER_TX_MAX_RETRIES", "HTTP_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.App.Store)
	assert.Empty(t, cfg.App.CatalogPath)
	assert.Equal(t, "WEIGHTED_AVERAGE", cfg.Ledger.DefaultCostingMethod)
	assert.Equal(t, []string{"sale"}, cfg.Ledger.NegativeAllowedTypes)
	assert.Equal(t, "sent_quantity", cfg.Ledger.ReceiptFallback)
	assert.Equal(t, 10*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, 3, cfg.Ledger.TxMaxRetries)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_DesdeEntorno(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_STORE", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("LEDGER_NEGATIVE_ALLOWED_TYPES", "sale,adjustment")
	t.Setenv("LEDGER_TX_TIMEOUT_SECONDS", "4")
	t.Setenv("LEDGER_TRANSFER_RECEIPT_FALLBACK", "reject")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"sale", "adjustment"}, cfg.Ledger.NegativeAllowedTypes)
	assert.Equal(t, 4*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, "reject", cfg.Ledger.ReceiptFallback)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	cases := map[string][2]string{
		"fallback desconocido": {"LEDGER_TRANSFER_RECEIPT_FALLBACK", "guess"},
		"store desconocido":    {"LEDGER_STORE", "sqlite"},
		"reintentos negativos": {"LEDGER_TX_MAX_RETRIES", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/ledger?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgresql://x@y/z"
	assert.Equal(t, "postgresql://x@y/z", c.ConnectionString())
}
