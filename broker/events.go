package broker

import (
	"context"
	"time"

	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
)

const EventTypePurchaseCompleted = "purchase.completed"

// Envelope is the JSON body of every event on the wire.
type Envelope struct {
	EventID    uuid.UUID   `json:"eventId"`
	EventType  string      `json:"eventType"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher publishes domain events through a Producer.
type EventPublisher struct {
	producer *Producer
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPurchaseCompleted is keyed by user so a user's purchases keep their order.
func (ep *EventPublisher) PublishPurchaseCompleted(ctx context.Context, event models.PurchaseCompleted) error {
	return ep.producer.PublishEvent(ctx, "user-"+event.UserID.String(), Envelope{
		EventID:    uuid.New(),
		EventType:  EventTypePurchaseCompleted,
		OccurredAt: event.PurchasedAt,
		Payload:    event,
	})
}
