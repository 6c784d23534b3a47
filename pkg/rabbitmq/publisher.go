package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
)

// IPublisher interface defines the method to publish a message
type IPublisher interface {
	PublishMessage(message interface{}) error
	PublishTo(topic string, message interface{}) error
	Close()
}

// Publisher holds the client and the default topic for publishing messages
type Publisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewPublisher creates a new Publisher instance using the shared MQTT client and topic
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topic,
		timeout: 5 * time.Second,
		log:     logger.WithComponent("mqtt"),
	}
}

// PublishMessage publishes a message to the default topic.
func (p *Publisher) PublishMessage(message interface{}) error {
	return p.PublishTo(p.topic, message)
}

// PublishTo publishes to an explicit topic. Strings and byte slices are sent
// as-is, anything else is JSON encoded.
func (p *Publisher) PublishTo(topic string, message interface{}) error {
	payload, err := encode(message)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, qosFor(topic), false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out after %s", topic, p.timeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	p.log.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("message published")
	return nil
}

func encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	case nil:
		return nil, fmt.Errorf("invalid message: nil")
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("invalid message format: %w", err)
		}
		return b, nil
	}
}

// Close gracefully closes the MQTT connection for the publisher
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.Info().Msg("mqtt client disconnected")
	}
}
