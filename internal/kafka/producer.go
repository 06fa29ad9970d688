package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-invitations/internal/config"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes notifications to one topic per kind. It is the
// dispatcher the invitation service and the reminder job hand off to.
type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				for _, m := range messages {
					log.LogKafka("DELIVERY_FAILED", m.Topic, fmt.Sprintf("key=%s: %v", m.Key, err))
				}
			}
		},
	}
	return &Producer{Writer: writer, Topics: cfg.Topics, Logger: log}
}

func (p *Producer) TopicFor(kind models.NotificationKind) (string, error) {
	switch kind {
	case models.NotificationInvitation:
		return p.Topics.Invitation, nil
	case models.NotificationReminder:
		return p.Topics.Reminder, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
}

// Enqueue publishes n keyed by invitation id, so notifications of one
// invitation stay ordered on a partition.
func (p *Producer) Enqueue(ctx context.Context, n models.Notification) error {
	topic, err := p.TopicFor(n.Kind)
	if err != nil {
		return err
	}
	msgBytes, err := json.Marshal(n)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s notification for invitation %s", n.Kind, n.InvitationID))

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(n.InvitationID),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NopDispatcher drops notifications. It stands in when Kafka is disabled.
type NopDispatcher struct {
	Logger *logger.Logger
}

func (d NopDispatcher) Enqueue(ctx context.Context, n models.Notification) error {
	d.Logger.Debug("KAFKA", fmt.Sprintf("Kafka disabled, dropping %s notification for %s", n.Kind, n.InvitationID))
	return nil
}
