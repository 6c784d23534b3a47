package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/config"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/event"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/dedup"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rabbitmq"
)

const (
	batchSize      = 10
	flushInterval  = 200 * time.Millisecond
	readinessGrace = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	logger.Init(cfg.LogLevel, cfg.Development())
	log := logger.WithComponent("event-svc")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.Broker.Enabled() || !cfg.Influx.Enabled() {
		log.Fatal().Msg("RABBITMQ_HOST and INFLUX_URL are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === InfluxDB ===
	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize).
		SetFlushInterval(uint(flushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token, opts)
	defer influx.Close()
	writer := event.NewWriter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket))
	defer writer.Flush()

	// === MQTT ===
	mqttClient, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
		Host:     cfg.Broker.Host,
		Port:     cfg.Broker.Port,
		User:     cfg.Broker.User,
		Password: cfg.Broker.Password,
		ClientID: cfg.Broker.ClientID + "-events",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connection error")
	}
	defer rabbitmq.CloseRabbitMQConn(mqttClient)

	// === HTTP ===
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", gin.WrapH(event.NewHealthHandler(mqttClient, influx, writer)))
	router.GET("/readyz", gin.WrapH(event.NewReadyHandler(mqttClient, influx, writer, 2*time.Second)))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/events/alerts/latest", gin.WrapH(event.NewAlertsLatestHandler(influx.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket)))

	hs := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", hs.Addr).Msg("HTTP listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// === Consumer ===
	h := event.NewMQTTHandler(cfg.Broker.TopicPrefix, writer.Write)

	// alert e aggregati arrivano con QoS1: possibili redelivery
	d := dedup.New(10*time.Minute, 20000)
	alertPrefix := rabbitmq.Topic(cfg.Broker.TopicPrefix, "alert") + "/"
	aggregated := rabbitmq.Topic(cfg.Broker.TopicPrefix, "sensor", "aggregated")

	consumer := rabbitmq.NewMultiConsumer(mqttClient, h.Topics(), func(queue string, m mqtt.Message) error {
		if strings.HasPrefix(m.Topic(), alertPrefix) || m.Topic() == aggregated {
			sum := sha256.Sum256(m.Payload())
			if !d.ShouldProcess(m.Topic() + ":" + hex.EncodeToString(sum[:])) {
				return nil
			}
		}
		if err := h.Handle(queue, m); err != nil {
			log.Warn().Err(err).Msg("dropping message")
		}
		return nil
	})
	log.Info().Strs("topics", h.Topics()).Msg("subscribing")
	go consumer.ConsumeMessage(ctx)

	// === Wait for signal ===
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), readinessGrace)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	// consenti flush
	time.Sleep(flushInterval + 100*time.Millisecond)
}
