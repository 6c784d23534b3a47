package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards alert transitions and notifications to a topic keyed by
// community, so one community's events stay ordered on one partition.
// Readings and aggregates stay on MQTT/Influx.
type KafkaSink struct {
	w      MessageWriter
	closed atomic.Bool
}

// NewKafkaWriter builds the synchronous writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // Partition by key
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           2 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) PublishReadings(context.Context, []messages.SensorData) error { return nil }

func (s *KafkaSink) PublishAggregate(context.Context, messages.AggregateReport) error { return nil }

func (s *KafkaSink) PublishAlert(ctx context.Context, evt messages.AlertEvent) error {
	return s.write(ctx, evt.Alert.CommunityID, string(evt.Type), evt.Alert.ID, evt.Timestamp, evt)
}

func (s *KafkaSink) PublishNotification(ctx context.Context, n messages.Notification) error {
	return s.write(ctx, n.CommunityID, "notification."+string(n.Kind), n.ID, n.CreatedAt, n)
}

func (s *KafkaSink) write(ctx context.Context, key, eventType, id string, at time.Time, v interface{}) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", eventType, err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(id)},
		},
		Time: at,
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", eventType, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.w.Close()
}
