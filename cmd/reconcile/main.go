// reconcile concilia los saldos de una bodega contra el libro de movimientos y escribe el resultado
// como JSON (stdout) o como PDF.
//
// Uso: go run ./cmd/reconcile --business biz-1 --location loc-a [--format pdf --out reporte.pdf]
// Usa la misma configuración de base de datos que la API (DB_*, DATABASE_URL).
// Sale con código 2 si algún par presenta diferencias.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	infrapdf "github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	businessID := pflag.StringP("business", "b", "", "negocio dueño de la bodega")
	locationID := pflag.StringP("location", "l", "", "bodega a conciliar")
	format := pflag.StringP("format", "f", "json", "formato de salida: json | pdf")
	out := pflag.StringP("out", "o", "", "archivo de salida (obligatorio para pdf)")
	pflag.Parse()

	if *businessID == "" || *locationID == "" {
		fmt.Fprintln(os.Stderr, "--business y --location son obligatorios")
		pflag.Usage()
		os.Exit(1)
	}
	if *format != "json" && *format != "pdf" {
		fmt.Fprintf(os.Stderr, "formato inválido: %q\n", *format)
		os.Exit(1)
	}
	if *format == "pdf" && *out == "" {
		fmt.Fprintln(os.Stderr, "--out es obligatorio con --format pdf")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "reconcile"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	policy, err := appinv.NewPolicy(cfg.Ledger.NegativeAllowedTypes, cfg.Ledger.DefaultCostingMethod, cfg.Ledger.LongTxTimeout, cfg.Ledger.TxMaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("política de inventario")
	}
	store := appinv.NewBalanceStore(postgres.NewTxRunner(pool, cfg.Ledger.LongTxTimeout), appinv.NoopPublisher{}, policy, log, nil)
	ledger := appinv.NewLedger(store, log, nil)

	res, err := ledger.ReconcileLocation(ctx, *businessID, *locationID)
	if err != nil {
		log.Fatal().Err(err).Msg("conciliación")
	}

	inconsistent := 0
	for _, r := range res.Reports {
		if !r.Consistent {
			inconsistent++
		}
	}

	switch *format {
	case "pdf":
		doc, err := infrapdf.NewReconciliationReportGenerator().Generate(ctx, infrapdf.ReportHeader{
			BusinessID:   *businessID,
			LocationID:   res.Location.ID,
			LocationName: res.Location.Name,
			GeneratedBy:  "cmd/reconcile",
		}, res.Reports)
		if err != nil {
			log.Fatal().Err(err).Msg("generar PDF")
		}
		if err := os.WriteFile(*out, doc, 0o644); err != nil {
			log.Fatal().Err(err).Msg("escribir PDF")
		}
		fmt.Printf("Generado %s: %d pares, %d con diferencias\n", *out, len(res.Reports), inconsistent)
	default:
		w := os.Stdout
		if *out != "" {
			f, err := os.Create(*out)
			if err != nil {
				log.Fatal().Err(err).Msg("crear archivo de salida")
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(httpRouter.ToConsistencyResponses(res.Reports)); err != nil {
			log.Fatal().Err(err).Msg("escribir JSON")
		}
	}

	if inconsistent > 0 {
		log.Warn().Int("inconsistent", inconsistent).Msg("la bodega tiene diferencias")
		os.Exit(2)
	}
}
