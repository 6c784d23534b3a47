package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

// LogSink writes a structured line per message. It is always enabled so the
// process stays observable without any backend.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) PublishReadings(_ context.Context, data []messages.SensorData) error {
	unsafe := 0
	for _, d := range data {
		if d.Severity != entities.RiskLow {
			unsafe++
		}
	}
	s.log.Debug().Int("readings", len(data)).Int("unsafe", unsafe).Msg("sensor readings")
	return nil
}

func (s *LogSink) PublishAlert(_ context.Context, evt messages.AlertEvent) error {
	s.log.Info().
		Str("event", string(evt.Type)).
		Str("alert_id", evt.Alert.ID).
		Str("severity", string(evt.Alert.Severity)).
		Str("community_id", evt.Alert.CommunityID).
		Msg(evt.Alert.Title)
	return nil
}

func (s *LogSink) PublishNotification(_ context.Context, n messages.Notification) error {
	s.log.Info().Str("kind", string(n.Kind)).Str("channel", string(n.Channel)).Msg(n.Title)
	return nil
}

func (s *LogSink) PublishAggregate(_ context.Context, r messages.AggregateReport) error {
	s.log.Info().
		Int("online", r.OnlineSensors).
		Int("risk_pct", r.RiskPct).
		Str("risk_level", string(r.RiskLevel)).
		Msg("aggregate report")
	return nil
}
