package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/game-store-project/game-store/monitoring"
	"github.com/game-store-project/game-store/utils"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a Kafka producer for topic. Writes are asynchronous:
// delivery failures are logged and counted, never returned to the caller.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			result := "success"
			if err != nil {
				result = "failure"
				utils.Log.WithError(err).WithFields(logrus.Fields{
					"topic":    topic,
					"messages": len(messages),
				}).Error("Failed to deliver events")
			}
			monitoring.EventsPublished.WithLabelValues(topic, result).Add(float64(len(messages)))
		},
	}

	return &Producer{writer: writer, topic: topic}
}

// PublishEvent writes event as JSON under key.
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	utils.Log.WithFields(logrus.Fields{"topic": p.topic, "key": key, "type": fmt.Sprintf("%T", event)}).Debug("Published event")
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
