package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rabbitmq"
)

// MQTTSink publishes on the broker under a topic prefix:
//
//	<prefix>/sensor/data/<community>/<sensor>
//	<prefix>/sensor/aggregated
//	<prefix>/alert/<severity>/<community>
//	<prefix>/alert/ack/<community>
//	<prefix>/notify/<kind>
type MQTTSink struct {
	pub    rabbitmq.IPublisher
	prefix string
}

func NewMQTTSink(pub rabbitmq.IPublisher, prefix string) *MQTTSink {
	return &MQTTSink{pub: pub, prefix: prefix}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) PublishReadings(ctx context.Context, data []messages.SensorData) error {
	var errs []error
	for _, d := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		topic := rabbitmq.Topic(s.prefix, "sensor", "data", d.CommunityID, d.SensorID)
		if err := s.pub.PublishTo(topic, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MQTTSink) PublishAlert(_ context.Context, evt messages.AlertEvent) error {
	seg := string(evt.Alert.Severity)
	if evt.Type == messages.AlertAcknowledged {
		seg = "ack"
	}
	return s.pub.PublishTo(rabbitmq.Topic(s.prefix, "alert", seg, evt.Alert.CommunityID), evt)
}

func (s *MQTTSink) PublishNotification(_ context.Context, n messages.Notification) error {
	return s.pub.PublishTo(rabbitmq.Topic(s.prefix, "notify", string(n.Kind)), n)
}

func (s *MQTTSink) PublishAggregate(_ context.Context, r messages.AggregateReport) error {
	if err := s.pub.PublishTo(rabbitmq.Topic(s.prefix, "sensor", "aggregated"), r); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	return nil
}
