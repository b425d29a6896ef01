package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderDeleted       Type = "order.deleted"
)

// OrderEvent is the payload published for every order mutation.
type OrderEvent struct {
	Type       Type               `json:"type"`
	OrderID    string             `json:"orderId"`
	UserID     string             `json:"userId"`
	Status     domain.OrderStatus `json:"status"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// NewOrderEvent snapshots the fields of o relevant to downstream consumers.
func NewOrderEvent(t Type, o domain.Order) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.User.ID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func New(brokers []string, topic string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		logging.OrDiscard(logger).Info("order events disabled", "reason", "no kafka brokers")
		return Nop{}
	}
	return NewKafka(brokers, topic, logger)
}

type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
func (Nop) Close() error                              { return nil }

type Kafka struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafka(brokers []string, topic string, logger *slog.Logger) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
		logger: logging.OrDiscard(logger).With("component", "events", "topic", topic),
	}
}

// Publish writes e keyed by order id so all events of one order land on the
// same partition.
func (k *Kafka) Publish(ctx context.Context, e OrderEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := kafka.Message{Key: []byte(e.OrderID), Value: data, Time: e.OccurredAt}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	k.logger.Debug("order event published", "type", e.Type, "order_id", e.OrderID)
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
