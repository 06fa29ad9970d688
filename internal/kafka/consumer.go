package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-invitations/internal/config"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
)

const (
	defaultAttempts = 3
	maxFetchBackoff = 30 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one notification. A returned error is retried a few
// times before the message is committed anyway.
type Handler func(ctx context.Context, n models.Notification) error

type Consumer struct {
	reader   messageReader
	Logger   *logger.Logger
	Attempts int
	Backoff  time.Duration
}

// NewConsumer joins the consumer group on both notification topics.
func NewConsumer(cfg config.KafkaConfig, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: []string{cfg.Topics.Invitation, cfg.Topics.Reminder},
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, Logger: log, Attempts: defaultAttempts, Backoff: time.Second}
}

// DecodeNotification parses a message value.
func DecodeNotification(value []byte) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(value, &n); err != nil {
		return n, err
	}
	if n.InvitationID == "" {
		return n, errors.New("notification without invitation id")
	}
	return n, nil
}

// Run consumes until ctx is cancelled or the reader is closed. Fetch errors
// are retried with a growing delay.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.Logger.Info("KAFKA", "Notification consumer started")

	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.Logger.Info("KAFKA", "Reader closed, notification consumer stopping")
				return nil
			}
			failures++
			delay := c.fetchBackoff(failures)
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message (retry in %s): %v", delay, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		failures = 0

		n, err := DecodeNotification(msg.Value)
		if err != nil {
			c.Logger.LogKafka("DECODE_FAILED", msg.Topic, fmt.Sprintf("offset %d: %v", msg.Offset, err))
		} else {
			c.handle(ctx, msg.Topic, n, handle)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d: %v", msg.Offset, err))
		}
	}
}

func (c *Consumer) fetchBackoff(failures int) time.Duration {
	base := c.Backoff
	if base <= 0 {
		base = time.Second
	}
	delay := base * time.Duration(failures)
	if delay > maxFetchBackoff {
		delay = maxFetchBackoff
	}
	return delay
}

func (c *Consumer) handle(ctx context.Context, topic string, n models.Notification, handle Handler) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		err := handle(ctx, n)
		if err == nil {
			return
		}
		c.Logger.LogKafka("HANDLE_FAILED", topic, fmt.Sprintf("%s for %s (attempt %d/%d): %v", n.Kind, n.InvitationID, i, attempts, err))
		if i < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.Backoff * time.Duration(i)):
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
