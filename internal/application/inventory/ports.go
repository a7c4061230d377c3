package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// MovementPublisher publica los movimientos ya confirmados (Kafka u otro bus).
// Un error de publicación nunca revierte el libro.
type MovementPublisher interface {
	Publish(ctx context.Context, movements []entity.StockMovement) error
}

// NoopPublisher descarta los eventos (sin brokers configurados).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, []entity.StockMovement) error { return nil }

// ValuationCache guarda resultados de valuación; la clave incluye la marca de agua del libro,
// por lo que nunca hace falta invalidar.
type ValuationCache interface {
	Get(ctx context.Context, key string) ([]dto.ValuationLine, bool, error)
	Set(ctx context.Context, key string, lines []dto.ValuationLine) error
}

// NoopValuationCache caché que nunca acierta.
type NoopValuationCache struct{}

func (NoopValuationCache) Get(context.Context, string) ([]dto.ValuationLine, bool, error) {
	return nil, false, nil
}

func (NoopValuationCache) Set(context.Context, string, []dto.ValuationLine) error { return nil }

// Policy políticas del motor de inventario.
type Policy struct {
	// NegativeAllowed tipos de movimiento que pueden dejar el saldo negativo si el caller lo pide.
	NegativeAllowed map[entity.MovementType]bool
	DefaultMethod   inventory.ValuationMethod
	TxTimeout       time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
}

// DefaultPolicy solo las ventas pueden sobregirar; promedio ponderado; 3 reintentos.
func DefaultPolicy() Policy {
	return Policy{
		NegativeAllowed: map[entity.MovementType]bool{entity.MovementSale: true},
		DefaultMethod:   inventory.ValuationWeightedAverage,
		TxTimeout:       10 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    20 * time.Millisecond,
	}
}

// NewPolicy construye la política desde valores de configuración.
func NewPolicy(negativeTypes []string, method string, txTimeout time.Duration, maxRetries int) (Policy, error) {
	p := DefaultPolicy()
	p.NegativeAllowed = make(map[entity.MovementType]bool, len(negativeTypes))
	for _, t := range negativeTypes {
		mt := entity.MovementType(t)
		if !mt.IsValid() {
			return Policy{}, fmt.Errorf("tipo de movimiento desconocido en la política de negativos: %q", t)
		}
		p.NegativeAllowed[mt] = true
	}
	if method != "" {
		m, err := inventory.ParseValuationMethod(method)
		if err != nil {
			return Policy{}, err
		}
		p.DefaultMethod = m
	}
	if txTimeout > 0 {
		p.TxTimeout = txTimeout
	}
	p.MaxRetries = maxRetries
	return p, nil
}
