// Package notify publishes workflow transition events to Kafka for the
// downstream email/notification service. Delivery is best-effort: a
// failed publish never rolls back the transition that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/bookfairhq/bookfair-backend/internal/model"
	"go.uber.org/zap"
)

// Event types emitted by the workflow.
const (
	EventSubmissionCreated     = "submission_created"
	EventRegistrationCompleted = "registration_completed"
	EventStandConfirmed        = "stand_confirmed"
	EventPaymentDeferred       = "payment_deferred"
	EventPaymentSucceeded      = "payment_succeeded"
	EventPaymentFailed         = "payment_failed"
	EventDonationHandoff       = "donation_handoff"
	EventCheckedIn             = "checked_in"
)

// Event is one notification-worthy workflow transition.
type Event struct {
	Type       string     `json:"type"`
	Reference  string     `json:"reference"`
	Kind       model.Kind `json:"kind"`
	Email      string     `json:"email,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewProducer builds a sarama SyncProducer with delivery acknowledged
// by all in-sync replicas.
func NewProducer(brokers []string, logger *zap.Logger) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info("kafka producer initialized")
	return producer, nil
}

// KafkaNotifier publishes events as JSON messages keyed by reference,
// so all events for one submission land on the same partition in order.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaNotifier constructs a KafkaNotifier.
func NewKafkaNotifier(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, logger: logger}
}

// Notify publishes one event.
func (n *KafkaNotifier) Notify(_ context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(event.Reference),
		Value: sarama.ByteEncoder(body),
	}
	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	n.logger.Info("notification published",
		zap.String("type", event.Type),
		zap.String("reference", event.Reference),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}
