package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/alerting"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/config"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	sensorSimulator "github.com/LeonardoBeccarini/community_health_monitor/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/aggregator"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/dashboard"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/dispatch"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/services/event"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/store"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

const sinkTimeout = 2 * time.Second

func main() {
	cfg, err := config.Load()
	logger.Init(cfg.LogLevel, cfg.Development())
	log := logger.WithComponent("main")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Seed ===
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := rng.New(seed)
	communities := entities.DefaultCommunities()
	readings := sensorSimulator.SeedReadings(communities, entities.SensorLocations, src, time.Now())
	st := store.New(communities, readings, cfg.Alerts.HistorySize)

	profile := sensorSimulator.DefaultDriftProfile()
	profile.StatusFlipProb = cfg.Simulation.StatusFlipProb
	profile.BatteryDrainProb = cfg.Simulation.BatteryDrainProb
	source := sensorSimulator.NewRandomSource(src, profile)
	emitter := alerting.NewEmitter(src, cfg.Alerts.Probability, communities)

	log.Info().
		Int64("seed", seed).
		Int("communities", len(communities)).
		Int("sensors", len(readings)).
		Msg("state seeded")

	// === Sinks ===
	sinks := []dispatch.Sink{dispatch.NewLogSink(logger.WithComponent("notifications"))}

	var mqttClient mqtt.Client
	if cfg.Broker.Enabled() {
		mqttClient, err = rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.Broker.Host,
			Port:     cfg.Broker.Port,
			User:     cfg.Broker.User,
			Password: cfg.Broker.Password,
			ClientID: cfg.Broker.ClientID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connection error")
		}
		defer rabbitmq.CloseRabbitMQConn(mqttClient)
		sinks = append(sinks, dispatch.NewMQTTSink(rabbitmq.NewPublisher(mqttClient, cfg.Broker.TopicPrefix), cfg.Broker.TopicPrefix))
	}

	var events *event.Writer
	var alertsLatest http.Handler
	if cfg.Influx.Enabled() {
		influx := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		defer influx.Close()
		events = event.NewWriter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket))
		defer events.Flush()
		sinks = append(sinks, dispatch.NewInfluxSink(events))
		alertsLatest = event.NewAlertsLatestHandler(influx.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket)
	}

	if cfg.Kafka.Enabled() {
		kafkaSink := dispatch.NewKafkaSink(dispatch.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	dispatcher := dispatch.NewDispatcher(cfg.Breaker, sinkTimeout, sinks...)
	log.Info().Strs("sinks", dispatcher.Sinks()).Msg("dispatcher ready")

	// === Simulator ===
	opts := []sensorSimulator.Option{sensorSimulator.WithPublisher(dispatcher)}
	if mqttClient != nil {
		commands := rabbitmq.Topic(cfg.Broker.TopicPrefix, "command", "#")
		opts = append(opts, sensorSimulator.WithConsumer(rabbitmq.NewConsumer(mqttClient, commands, nil)))
	}
	simulator := sensorSimulator.NewSensorSimulator(st, source, emitter, opts...)
	agg := aggregator.NewDataAggregatorService(st.Sensors, dispatcher, cfg.Aggregator.Schedule)

	api := dashboard.New(cfg, dashboard.Deps{
		Store:      st,
		Simulation: simulator,
		Sinks:      dispatcher,
		Events:     alertsLatest,
		Rand:       src,
	})

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Error().Err(err).Str("task", name).Msg("task failed")
				stop()
			}
		}()
	}

	run("simulator", func() error {
		simulator.Start(ctx, cfg.Simulation.Interval)
		return nil
	})
	run("aggregator", func() error { return agg.Start(ctx) })
	run("http", func() error {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("HTTP listening")
		return api.Run(ctx)
	})
	if cfg.GRPC.Port > 0 {
		health := dashboard.NewHealthServer()
		run("grpc-health", func() error { return health.Run(ctx, cfg.GRPCAddr()) })
		run("grpc-monitor", func() error {
			health.Monitor(ctx, simulator, dispatcher, cfg.Simulation.Interval)
			return nil
		})
	}

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	wg.Wait()
}
