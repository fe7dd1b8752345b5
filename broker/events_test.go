package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishPurchaseCompleted(t *testing.T) {
	w := &recordingWriter{}
	publisher := NewEventPublisher(&Producer{writer: w, topic: "purchase-events"})

	user, game := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	err := publisher.PublishPurchaseCompleted(context.Background(), models.PurchaseCompleted{
		UserID:      user,
		GameIDs:     []uuid.UUID{game},
		Total:       decimal.RequireFromString("59.90"),
		PurchasedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "user-"+user.String(), string(msg.Key))

	var body struct {
		EventType  string    `json:"eventType"`
		OccurredAt time.Time `json:"occurredAt"`
		Payload    struct {
			UserID  uuid.UUID   `json:"userId"`
			GameIDs []uuid.UUID `json:"gameIds"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, EventTypePurchaseCompleted, body.EventType)
	assert.True(t, at.Equal(body.OccurredAt))
	assert.Equal(t, user, body.Payload.UserID)
	assert.Equal(t, []uuid.UUID{game}, body.Payload.GameIDs)
}

func TestPublishEventWrapsWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("no brokers")}
	p := &Producer{writer: w, topic: "purchase-events"}

	err := p.PublishEvent(context.Background(), "k", map[string]string{"a": "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
