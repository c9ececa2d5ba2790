package projector

import (
	"context"
	"encoding/json"
	"time"

	"qrdine-api/models"

	"github.com/segmentio/kafka-go"
)

// OrderEvent is emitted after every canonical order change so downstream
// consumers (notification workers, reporting) can react without polling.
type OrderEvent struct {
	Type         string             `json:"type"`
	OrderID      string             `json:"order_id"`
	RestaurantID uint               `json:"restaurant_id"`
	CustomerID   uint               `json:"customer_id"`
	Status       models.OrderStatus `json:"status"`
	Timestamp    time.Time          `json:"timestamp"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type KafkaPublisher struct {
	Writer *kafka.Writer
}

// NewKafkaPublisher builds a publisher for the order-events topic.
func NewKafkaPublisher(broker string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    "order-events",
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, _ := json.Marshal(event)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	})
}
