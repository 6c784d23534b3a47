package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

var ErrMissingSensor = errors.New("reading without sensor id")

// Sink riceve i punti decodificati insieme al loro tipo.
type Sink func(kind string, p *write.Point)

// MQTTHandler trasforma messaggi MQTT in punti Influx e li passa al sink.
type MQTTHandler struct {
	prefix string
	sink   Sink
}

// NewMQTTHandler builds a handler for topics under prefix (e.g. "chm").
func NewMQTTHandler(prefix string, sink Sink) *MQTTHandler {
	return &MQTTHandler{prefix: strings.Trim(prefix, "/"), sink: sink}
}

// Topics returns the subscriptions the handler understands.
func (h *MQTTHandler) Topics() []string {
	return []string{
		h.prefix + "/sensor/data/#",
		h.prefix + "/sensor/aggregated",
		h.prefix + "/alert/#",
		h.prefix + "/notify/#",
	}
}

func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := strings.TrimPrefix(m.Topic(), h.prefix+"/")
	payload := m.Payload()

	var (
		kind string
		p    *write.Point
		err  error
	)
	switch {
	case strings.HasPrefix(topic, "sensor/data/"):
		kind = MeasurementReading
		p, err = decodeReading(payload)
	case topic == "sensor/aggregated":
		kind = MeasurementAggregate
		p, err = decodeAggregate(payload)
	case strings.HasPrefix(topic, "alert/"):
		kind = MeasurementAlert
		p, err = decodeAlert(payload)
	case strings.HasPrefix(topic, "notify/"):
		kind = MeasurementNotification
		p, err = decodeNotification(payload)
	default:
		return nil // ignora altri topic
	}
	if err != nil {
		return fmt.Errorf("%s: %w", m.Topic(), err)
	}
	if h.sink != nil {
		h.sink(kind, p)
	}
	return nil
}

func decodeReading(payload []byte) (*write.Point, error) {
	var d msg.SensorData
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.SensorID) == "" {
		return nil, ErrMissingSensor
	}
	return ReadingToPoint(d), nil
}

func decodeAggregate(payload []byte) (*write.Point, error) {
	var r msg.AggregateReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return AggregateToPoint(r), nil
}

func decodeAlert(payload []byte) (*write.Point, error) {
	var e msg.AlertEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	if e.Alert.ID == "" {
		return nil, errors.New("alert event without id")
	}
	return AlertToPoint(e), nil
}

func decodeNotification(payload []byte) (*write.Point, error) {
	var n msg.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, err
	}
	return NotificationToPoint(n), nil
}
