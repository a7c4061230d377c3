package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-ledger/docs"
	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/returns"
	"github.com/jhoicas/inventario-ledger/internal/application/serial"
	"github.com/jhoicas/inventario-ledger/internal/application/transfer"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/events"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	policy, err := appinv.NewPolicy(
		cfg.Ledger.NegativeAllowedTypes,
		cfg.Ledger.DefaultCostingMethod,
		cfg.Ledger.TxTimeout,
		cfg.Ledger.TxMaxRetries,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("política de inventario")
	}
	m := metrics.New(metrics.Config{})

	ctx := context.Background()

	// Persistencia: PostgreSQL en producción; memoria para demos y pruebas locales.
	var txRunner repository.TxRunner
	switch cfg.App.Store {
	case "memory":
		txRunner = memory.New()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("esquema de base de datos")
		}
		txRunner = postgres.NewTxRunner(pool, cfg.Ledger.TxTimeout)
	}

	if cfg.App.CatalogPath != "" {
		cat, err := catalog.Load(cfg.App.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.App.CatalogPath).Msg("catálogo")
		}
		var created int
		err = txRunner.Run(ctx, repository.TxOptions{}, func(ctx context.Context, repos repository.Repos) error {
			var err error
			created, err = cat.Seed(ctx, repos)
			return err
		})
		if err != nil {
			log.Fatal().Err(err).Msg("sembrar catálogo")
		}
		log.Info().Str("business_id", cat.BusinessID).Int("created", created).Msg("catálogo sembrado")
	}

	// Publicación de movimientos confirmados: opcional
	var publisher appinv.MovementPublisher = appinv.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publicación Kafka activa")
	}

	// Caché de valuación: opcional; si Redis no responde se sigue sin caché
	var valuationCache appinv.ValuationCache = appinv.NoopValuationCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisValuationCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible, valuación sin caché")
			_ = rc.Close()
		} else {
			defer rc.Close()
			valuationCache = rc
		}
	}

	store := appinv.NewBalanceStore(txRunner, publisher, policy, log, m)
	ledger := appinv.NewLedger(store, log, m)
	valuation := appinv.NewValuationEngine(store, valuationCache, log)
	serials := serial.NewRegistry(store, log, m)
	transfers := transfer.NewUseCase(store, valuation, serials, transfer.Config{
		ReceiptFallback: cfg.Ledger.ReceiptFallback,
		LongTxTimeout:   cfg.Ledger.LongTxTimeout,
		LongTxThreshold: cfg.Ledger.LongTxThreshold,
	}, log, m)
	returnsUC := returns.NewUseCase(store, serials, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(docs.FilePath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: docs.FilePath,
			Path:     "docs",
			Title:    "Inventario Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Store:     store,
		Ledger:    ledger,
		Valuation: valuation,
		Transfers: transfers,
		Serials:   serials,
		Returns:   returnsUC,
		Report:    infrapdf.NewReconciliationReportGenerator(),
		Metrics:   m.Handler(),
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
