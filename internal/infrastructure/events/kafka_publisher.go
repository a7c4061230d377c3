package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementEvent mensaje publicado por cada fila nueva del libro.
type MovementEvent struct {
	MovementID    string          `json:"movement_id"`
	Seq           int64           `json:"seq"`
	BusinessID    string          `json:"business_id"`
	ProductID     string          `json:"product_id"`
	VariationID   string          `json:"variation_id"`
	LocationID    string          `json:"location_id"`
	Type          string          `json:"type"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	ActorID       string          `json:"actor_id"`
	Corrective    bool            `json:"corrective"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewMovementEvent convierte una fila del libro en su mensaje.
func NewMovementEvent(m entity.StockMovement) MovementEvent {
	return MovementEvent{
		MovementID:    m.ID,
		Seq:           m.Seq,
		BusinessID:    m.BusinessID,
		ProductID:     m.ProductID,
		VariationID:   m.VariationID,
		LocationID:    m.LocationID,
		Type:          string(m.Type),
		Delta:         m.Delta,
		BalanceAfter:  m.BalanceAfter,
		UnitCost:      m.UnitCost,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		ActorID:       m.ActorID,
		Corrective:    m.Corrective,
		OccurredAt:    m.CreatedAt,
	}
}

// messageWriter subconjunto de *kafka.Writer usado por el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica movimientos confirmados, con clave variation_id:location_id para que
// los eventos de un mismo par conserven el orden dentro de la partición.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher crea un writer síncrono hacia el tópico.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		},
		topic: topic,
	}
}

func newKafkaPublisherWithWriter(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// Publish envía un mensaje por movimiento.
func (p *KafkaPublisher) Publish(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(movements))
	for _, m := range movements {
		data, err := json.Marshal(NewMovementEvent(m))
		if err != nil {
			return fmt.Errorf("serializar movimiento %s: %w", m.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.VariationID + ":" + m.LocationID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte("inventory.movement." + string(m.Type))},
				{Key: "business-id", Value: []byte(m.BusinessID)},
			},
			Time: m.CreatedAt,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar en %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
