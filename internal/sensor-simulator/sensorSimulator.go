package sensor_simulator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/alerting"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/metrics"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/store"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/dedup"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rabbitmq"
)

var ErrInvalidCommand = errors.New("invalid command")

// Operator-facing notification titles.
const (
	EmergencyTitle    = "Emergency Alert"
	BroadcastTitle    = "Broadcast sent"
	AcknowledgedTitle = "Alert acknowledged"
)

// Publisher receives everything a tick or a command produces. Delivery
// failures are the publisher's concern and never reach the simulation.
type Publisher interface {
	PublishReadings(ctx context.Context, data []messages.SensorData)
	PublishAlert(ctx context.Context, evt messages.AlertEvent)
	PublishNotification(ctx context.Context, n messages.Notification)
}

type nopPublisher struct{}

func (nopPublisher) PublishReadings(context.Context, []messages.SensorData)     {}
func (nopPublisher) PublishAlert(context.Context, messages.AlertEvent)          {}
func (nopPublisher) PublishNotification(context.Context, messages.Notification) {}

// TickResult summarises one simulation pass.
type TickResult struct {
	Readings      []messages.SensorData
	Alerts        []entities.Alert
	Notifications []messages.Notification
	Risk          quality.RiskIndex
	At            time.Time
}

type SensorSimulator struct {
	store     *store.Store
	source    Source
	emitter   *alerting.Emitter
	publisher Publisher
	consumer  rabbitmq.IConsumer[mqtt.Message]
	deduper   *dedup.Deduper
	now       func() time.Time
	log       zerolog.Logger

	lastTick atomic.Int64 // unix nanos
	running  atomic.Bool
}

type Option func(*SensorSimulator)

// WithPublisher routes tick output to p instead of discarding it.
func WithPublisher(p Publisher) Option {
	return func(s *SensorSimulator) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithConsumer makes Start listen for broker commands.
func WithConsumer(c rabbitmq.IConsumer[mqtt.Message]) Option {
	return func(s *SensorSimulator) { s.consumer = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *SensorSimulator) { s.now = now }
}

func NewSensorSimulator(st *store.Store, source Source, emitter *alerting.Emitter, opts ...Option) *SensorSimulator {
	s := &SensorSimulator{
		store:     st,
		source:    source,
		emitter:   emitter,
		publisher: nopPublisher{},
		deduper:   dedup.New(2*time.Minute, 10000), // TTL e cap
		now:       time.Now,
		log:       logger.WithComponent("simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a tick every interval until ctx is cancelled. When a consumer
// is configured, broker commands are handled concurrently.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleMessage)
		go s.consumer.ConsumeMessage(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.running.Store(true)
	defer s.running.Store(false)
	s.log.Info().Dur("interval", interval).Msg("simulation started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("simulation stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick advances every sensor once, classifies the new values, applies the
// emitted alerts in the same critical section and then publishes the result.
func (s *SensorSimulator) Tick(ctx context.Context) TickResult {
	start := time.Now()
	now := s.now().UTC()
	res := TickResult{At: now}

	s.store.Mutate(func(sensors []entities.SensorReading, history *alerting.History) {
		res.Readings = make([]messages.SensorData, 0, len(sensors))
		for i := range sensors {
			next := s.source.Next(sensors[i], now)
			sensors[i] = next

			a := quality.Assess(next.Parameters)
			res.Readings = append(res.Readings, toSensorData(next, a))

			al, ok := s.emitter.Emit(next, a, now)
			if !ok {
				continue
			}
			history.Add(al)
			res.Alerts = append(res.Alerts, al)
			res.Notifications = append(res.Notifications, messages.Notification{
				ID:          al.ID,
				Kind:        messages.NotifyAlert,
				Title:       s.emitter.ToastTitle(al, a),
				Description: now.Format(time.DateTime),
				Severity:    al.Severity,
				Channel:     al.Channel,
				CommunityID: al.CommunityID,
				CreatedAt:   now,
			})
		}
		res.Risk = quality.RiskIndexOf(sensors)
		observeSensors(sensors)
	})

	s.lastTick.Store(now.UnixNano())
	metrics.SimulationTicksTotal.Inc()
	metrics.SimulationTickDuration.Observe(time.Since(start).Seconds())
	metrics.RiskIndex.Set(float64(res.Risk.Pct))

	s.publisher.PublishReadings(ctx, res.Readings)
	for _, al := range res.Alerts {
		metrics.AlertsEmittedTotal.WithLabelValues(string(al.Severity), string(al.Channel)).Inc()
		s.log.Warn().
			Str("alert_id", al.ID).
			Str("severity", string(al.Severity)).
			Str("channel", string(al.Channel)).
			Msg(al.Title)
		s.publisher.PublishAlert(ctx, messages.AlertEvent{Type: messages.AlertRaised, Alert: al, Timestamp: now})
	}
	for _, n := range res.Notifications {
		s.notify(ctx, n)
	}

	s.log.Debug().
		Int("sensors", len(res.Readings)).
		Int("alerts", len(res.Alerts)).
		Int("risk_pct", res.Risk.Pct).
		Msg("tick")
	return res
}

// Acknowledge marks an alert as handled. Repeated calls succeed without
// publishing anything new.
func (s *SensorSimulator) Acknowledge(ctx context.Context, id string) (entities.Alert, error) {
	a, changed, err := s.store.Acknowledge(id)
	if err != nil {
		return a, err
	}
	if !changed {
		return a, nil
	}
	now := s.now().UTC()
	metrics.AlertsAcknowledgedTotal.Inc()
	s.log.Info().Str("alert_id", id).Msg("alert acknowledged")
	s.publisher.PublishAlert(ctx, messages.AlertEvent{Type: messages.AlertAcknowledged, Alert: a, Timestamp: now})
	s.notify(ctx, messages.Notification{
		ID:          uuid.NewString(),
		Kind:        messages.NotifyAcknowledged,
		Title:       AcknowledgedTitle,
		Description: a.Title,
		Severity:    a.Severity,
		Channel:     a.Channel,
		CommunityID: a.CommunityID,
		CreatedAt:   now,
	})
	return a, nil
}

// TriggerEmergency raises the manual emergency notification. It never
// creates an alert in the history.
func (s *SensorSimulator) TriggerEmergency(ctx context.Context, cmd messages.EmergencyCommand) messages.Notification {
	n := messages.Notification{
		ID:          uuid.NewString(),
		Kind:        messages.NotifyEmergency,
		Title:       EmergencyTitle,
		Description: cmd.Message,
		Severity:    entities.RiskCritical,
		CommunityID: cmd.CommunityID,
		CreatedAt:   s.now().UTC(),
	}
	if c, ok := s.store.Community(cmd.CommunityID); ok {
		n.Title = fmt.Sprintf("%s: %s", c.Name, EmergencyTitle)
	}
	s.log.Warn().Str("community_id", cmd.CommunityID).Msg("emergency triggered")
	s.notify(ctx, n)
	return n
}

// Broadcast sends an operator message on one channel.
func (s *SensorSimulator) Broadcast(ctx context.Context, cmd messages.BroadcastCommand) (messages.Notification, error) {
	if !cmd.Channel.IsValid() {
		return messages.Notification{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidCommand, cmd.Channel)
	}
	n := messages.Notification{
		ID:          uuid.NewString(),
		Kind:        messages.NotifyBroadcast,
		Title:       BroadcastTitle,
		Description: cmd.Message,
		Channel:     cmd.Channel,
		CreatedAt:   s.now().UTC(),
	}
	s.notify(ctx, n)
	return n, nil
}

// Running reports whether Start is looping.
func (s *SensorSimulator) Running() bool { return s.running.Load() }

// LastTick is the time of the latest completed tick, zero before the first.
func (s *SensorSimulator) LastTick() time.Time {
	ns := s.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (s *SensorSimulator) notify(ctx context.Context, n messages.Notification) {
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()
	s.publisher.PublishNotification(ctx, n)
}

// handleMessage dispatches broker commands on the last topic segment.
func (s *SensorSimulator) handleMessage(topic string, msg mqtt.Message) error {
	t := msg.Topic()
	if t == "" {
		t = topic
	}
	command := path.Base(t)

	if s.isRedelivery(command, msg) {
		metrics.CommandsTotal.WithLabelValues(command, "duplicate").Inc()
		return nil
	}

	ctx := context.Background()
	err := s.applyCommand(ctx, command, msg.Payload())
	status := "applied"
	if err != nil {
		status = "invalid"
		if errors.Is(err, store.ErrAlertNotFound) {
			status = "not_found"
		}
	}
	metrics.CommandsTotal.WithLabelValues(command, status).Inc()
	return err
}

// isRedelivery records every command and reports QoS1 redeliveries.
// ack is idempotent, so any repeat of the same payload is dropped. Emergency
// and broadcast are operator actions that may be repeated on purpose: only a
// message flagged DUP by the broker, with an id and payload already seen, is
// dropped.
func (s *SensorSimulator) isRedelivery(command string, msg mqtt.Message) bool {
	if s.deduper == nil {
		return false
	}
	h := sha256.Sum256(msg.Payload())
	if command == "ack" {
		return !s.deduper.ShouldProcess("ack:" + hex.EncodeToString(h[:]))
	}
	key := fmt.Sprintf("%s:%d:%s", command, msg.MessageID(), hex.EncodeToString(h[:]))
	seen := !s.deduper.ShouldProcess(key)
	return seen && msg.Duplicate()
}

func (s *SensorSimulator) applyCommand(ctx context.Context, command string, payload []byte) error {
	switch command {
	case "ack":
		var cmd messages.AckCommand
		if err := json.Unmarshal(payload, &cmd); err != nil || cmd.AlertID == "" {
			return fmt.Errorf("%w: ack payload %q", ErrInvalidCommand, payload)
		}
		_, err := s.Acknowledge(ctx, cmd.AlertID)
		return err
	case "emergency":
		var cmd messages.EmergencyCommand
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return fmt.Errorf("%w: emergency payload: %v", ErrInvalidCommand, err)
			}
		}
		s.TriggerEmergency(ctx, cmd)
		return nil
	case "broadcast":
		var cmd messages.BroadcastCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("%w: broadcast payload: %v", ErrInvalidCommand, err)
		}
		_, err := s.Broadcast(ctx, cmd)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, command)
	}
}

func toSensorData(r entities.SensorReading, a quality.Assessment) messages.SensorData {
	return messages.SensorData{
		SensorID:    r.SensorID,
		CommunityID: r.CommunityID,
		Location:    r.Location,
		Status:      r.Status,
		Battery:     r.BatteryLevel,
		Parameters:  r.Parameters,
		Severity:    a.Severity,
		Issues:      a.Issues,
		Timestamp:   r.Parameters.Timestamp,
	}
}

func observeSensors(sensors []entities.SensorReading) {
	counts := make(map[entities.SensorStatus]int, len(entities.SensorStatuses))
	for _, r := range sensors {
		counts[r.Status]++
		metrics.SensorBattery.WithLabelValues(r.SensorID).Set(float64(r.BatteryLevel))
	}
	for _, st := range entities.SensorStatuses {
		metrics.SensorsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
