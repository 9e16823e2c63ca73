package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "feeflow.alerts"

const (
	writeTimeout = 10 * time.Second
	batchTimeout = 10 * time.Millisecond
)

// KafkaPublisher sends alerts as JSON messages keyed by organization so that
// one organization's alerts stay ordered within a partition. Writes are
// asynchronous: Publish only queues the message, and delivery failures are
// logged with the alert payload when the batch completes.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: writeTimeout,
			BatchTimeout: batchTimeout,
			Async:        true,
			Completion:   logUndelivered,
		},
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, a Alert) error {
	msg, err := message(a)
	if err != nil {
		return err
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		// The log keeps the alert when the writer refuses it too.
		_ = LogPublisher{}.Publish(ctx, a)
		return fmt.Errorf("queueing alert %s: %w", a.ID, err)
	}

	slog.Debug("alert queued", "alert_id", a.ID, "kind", a.Kind, "topic", k.writer.Topic)

	return nil
}

// logUndelivered is the writer's completion callback. Alerts the broker did
// not take are written to the log instead.
func logUndelivered(messages []kafka.Message, err error) {
	if err == nil {
		return
	}

	for _, m := range messages {
		var a Alert
		if jsonErr := json.Unmarshal(m.Value, &a); jsonErr != nil {
			slog.Error("undelivered alert", "payload", string(m.Value), "error", err)
			continue
		}

		slog.Error("alert not delivered to broker", "alert_id", a.ID, "error", err)
		_ = LogPublisher{}.Publish(context.Background(), a)
	}
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func message(a Alert) (kafka.Message, error) {
	v, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling alert: %w", err)
	}

	return kafka.Message{
		Key:   []byte(a.OrganizationID),
		Value: v,
		Time:  a.OccurredAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(a.Kind)},
		},
	}, nil
}
