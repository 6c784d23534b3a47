package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
)

var ErrMissingBroker = errors.New("mqtt broker host not configured")

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	MaxRetries int           // 0 means 5
	MaxElapsed time.Duration // 0 means 10s
}

// NewRabbitMQConn connects to the RabbitMQ MQTT plugin, retrying with
// exponential backoff. The connection is closed when ctx is done.
func NewRabbitMQConn(ctx context.Context, cfg *RabbitMQConfig) (mqtt.Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrMissingBroker
	}
	log := logger.WithComponent("mqtt")

	// Connection address for MQTT
	connAddr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	// Exponential backoff per le retry in caso di fail
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn().Err(token.Error()).Str("broker", connAddr).Msg("failed to connect to mqtt broker")
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Info().Str("broker", connAddr).Msg("connected to mqtt broker")

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Info().Msg("mqtt connection closed")
	}()

	return client, nil
}

func CloseRabbitMQConn(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log := logger.WithComponent("mqtt")
		log.Info().Msg("mqtt connection successfully closed")
	}
}

// Topic joins a prefix and topic segments with '/', skipping empty parts.
func Topic(prefix string, parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	for _, p := range append([]string{prefix}, parts...) {
		if p = strings.Trim(p, "/"); p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}
