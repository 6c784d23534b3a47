package dispatch

import (
	"context"
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/event"
)

// recentError is how long after an async write failure the sink reports
// itself unavailable, so the breaker can open.
const recentError = 5 * time.Second

// InfluxSink writes every message kind as points through the async write API.
type InfluxSink struct {
	w *event.Writer
}

func NewInfluxSink(w *event.Writer) *InfluxSink {
	return &InfluxSink{w: w}
}

func (s *InfluxSink) Name() string { return "influx" }

func (s *InfluxSink) check() error {
	if s.w.LastErrorAge() < recentError {
		return ErrSinkUnavailable
	}
	return nil
}

func (s *InfluxSink) PublishReadings(_ context.Context, data []messages.SensorData) error {
	if err := s.check(); err != nil {
		return err
	}
	for _, d := range data {
		s.w.Write(event.MeasurementReading, event.ReadingToPoint(d))
	}
	return nil
}

func (s *InfluxSink) PublishAlert(_ context.Context, evt messages.AlertEvent) error {
	if err := s.check(); err != nil {
		return err
	}
	s.w.Write(event.MeasurementAlert, event.AlertToPoint(evt))
	return nil
}

func (s *InfluxSink) PublishNotification(_ context.Context, n messages.Notification) error {
	if err := s.check(); err != nil {
		return err
	}
	s.w.Write(event.MeasurementNotification, event.NotificationToPoint(n))
	return nil
}

func (s *InfluxSink) PublishAggregate(_ context.Context, r messages.AggregateReport) error {
	if err := s.check(); err != nil {
		return err
	}
	s.w.Write(event.MeasurementAggregate, event.AggregateToPoint(r))
	return nil
}
