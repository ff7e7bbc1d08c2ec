package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/gateway/httpclient"
)

const (
	handlerAttempts = 3
	handlerBackoff  = 500 * time.Millisecond
)

type Consumer struct {
	reader   *kafka.Reader
	attempts int
	backoff  time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, attempts: handlerAttempts, backoff: handlerBackoff}
}

// Consume blocks until ctx is cancelled. Undecodable messages are committed and
// dropped. A failing handler is retried with backoff; once attempts run out the
// event is logged and committed, since a consumer group moves past it anyway.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Warn("Dropping undecodable event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
				"offset":     message.Offset,
				"attempts":   c.attempts,
			}).Error("Dropping event after failed attempts")
		}
		c.commit(ctx, message)
	}
}

func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	return httpclient.Retry(ctx, c.attempts, c.backoff, func() error {
		return handler(ctx, event)
	})
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
