package rabbitmq

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
)

// IConsumer interface defines the ConsumeMessage method with dependencies T
type IConsumer[T any] interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(queue string, message T) error)
}

// qosFor: comandi, alert e aggregati richiedono almeno una consegna.
func qosFor(topic string) byte {
	t := "/" + strings.Trim(strings.TrimSpace(topic), "/") + "/"
	for _, seg := range []string{"/command/", "/alert/", "/sensor/aggregated/"} {
		if strings.Contains(t, seg) {
			return 1
		}
	}
	return 0
}

// MultiConsumer subscribes one handler to several topics.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler func(queue string, message mqtt.Message) error
}

// NewConsumer creates a consumer for a single topic.
func NewConsumer(client mqtt.Client, topic string, handler func(queue string, message mqtt.Message) error) *MultiConsumer {
	return NewMultiConsumer(client, []string{topic}, handler)
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler func(queue string, message mqtt.Message) error) *MultiConsumer {
	return &MultiConsumer{
		client:  client,
		topics:  topics,
		handler: handler,
	}
}

func (m *MultiConsumer) SetHandler(handler func(queue string, message mqtt.Message) error) {
	m.handler = handler
}

// ConsumeMessage subscribes to every topic and blocks until ctx is cancelled.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	log := logger.WithComponent("mqtt")
	subscribed := make([]string, 0, len(m.topics))

	for _, topic := range m.topics {
		topic := topic // shadow for closure safety
		token := m.client.Subscribe(
			topic,
			qosFor(topic),
			func(_ mqtt.Client, msg mqtt.Message) {
				if m.handler == nil {
					log.Warn().Str("topic", topic).Msg("no handler set")
					return
				}
				if err := m.handler(topic, msg); err != nil {
					log.Error().Err(err).Str("topic", msg.Topic()).Msg("error handling message")
				}
			},
		)
		token.Wait()
		if token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
			continue
		}
		subscribed = append(subscribed, topic)
		log.Info().Str("topic", topic).Msg("subscribed")
	}

	<-ctx.Done()

	// On context cancel: unsubscribe from all
	if len(subscribed) > 0 && m.client.IsConnectionOpen() {
		m.client.Unsubscribe(subscribed...).Wait()
	}
}
