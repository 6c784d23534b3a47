package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the monitor process.
type Config struct {
	Env      string
	LogLevel string

	Simulation SimulationConfig
	Alerts     AlertConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	Broker     BrokerConfig
	Influx     InfluxConfig
	Kafka      KafkaConfig
	Aggregator AggregatorConfig
	Breaker    BreakerConfig
}

type SimulationConfig struct {
	Interval         time.Duration
	Seed             int64
	StatusFlipProb   float64
	BatteryDrainProb float64
}

type AlertConfig struct {
	Probability float64
	HistorySize int
}

type HTTPConfig struct {
	Port int
}

type GRPCConfig struct {
	Port int // 0 disables the health server
}

// BrokerConfig describes the RabbitMQ MQTT plugin endpoint. Empty Host disables it.
type BrokerConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	ClientID    string
	TopicPrefix string
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type AggregatorConfig struct {
	Schedule string
}

type BreakerConfig struct {
	Failures int
	OpenFor  time.Duration
}

func (b BrokerConfig) Enabled() bool { return b.Host != "" }
func (i InfluxConfig) Enabled() bool { return i.URL != "" }
func (k KafkaConfig) Enabled() bool  { return len(k.Brokers) > 0 }

// Development reports whether pretty console logging should be used.
func (c Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

// GRPCAddr returns the listen address of the gRPC health server.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPC.Port)
}

// MinSimInterval keeps consecutive ticks in distinct milliseconds, since
// alert ids carry the tick time in ms.
const MinSimInterval = 100 * time.Millisecond

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Env:      "production",
		LogLevel: "info",
		Simulation: SimulationConfig{
			Interval:         6 * time.Second,
			StatusFlipProb:   0.04,
			BatteryDrainProb: 0.3,
		},
		Alerts: AlertConfig{
			Probability: 0.5,
			HistorySize: 50,
		},
		HTTP: HTTPConfig{Port: 8080},
		GRPC: GRPCConfig{Port: 50051},
		Broker: BrokerConfig{
			Port:        1883,
			User:        "guest",
			Password:    "guest",
			ClientID:    "health-monitor",
			TopicPrefix: "chm",
		},
		Influx: InfluxConfig{
			Org:    "chm",
			Bucket: "water",
		},
		Kafka: KafkaConfig{
			Topic: "community-alerts",
		},
		Aggregator: AggregatorConfig{Schedule: "@every 30s"},
		Breaker: BreakerConfig{
			Failures: 5,
			OpenFor:  10 * time.Second,
		},
	}
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	cfg.Env = p.str("ENV", cfg.Env)
	cfg.LogLevel = p.str("LOG_LEVEL", cfg.LogLevel)

	cfg.Simulation.Interval = p.duration("SIM_INTERVAL", cfg.Simulation.Interval)
	cfg.Simulation.Seed = int64(p.int("SIM_SEED", int(cfg.Simulation.Seed)))
	cfg.Simulation.StatusFlipProb = p.float("SIM_STATUS_FLIP_PROB", cfg.Simulation.StatusFlipProb)
	cfg.Simulation.BatteryDrainProb = p.float("SIM_BATTERY_DRAIN_PROB", cfg.Simulation.BatteryDrainProb)

	cfg.Alerts.Probability = p.float("ALERT_PROBABILITY", cfg.Alerts.Probability)
	cfg.Alerts.HistorySize = p.int("ALERT_HISTORY_SIZE", cfg.Alerts.HistorySize)

	cfg.HTTP.Port = p.int("HTTP_PORT", cfg.HTTP.Port)
	cfg.GRPC.Port = p.int("GRPC_PORT", cfg.GRPC.Port)

	cfg.Broker.Host = p.str("RABBITMQ_HOST", cfg.Broker.Host)
	cfg.Broker.Port = p.int("RABBITMQ_PORT", cfg.Broker.Port)
	cfg.Broker.User = p.str("RABBITMQ_USER", cfg.Broker.User)
	cfg.Broker.Password = p.str("RABBITMQ_PASSWORD", cfg.Broker.Password)
	cfg.Broker.ClientID = p.str("RABBITMQ_CLIENTID", cfg.Broker.ClientID)
	cfg.Broker.TopicPrefix = strings.Trim(p.str("MQTT_TOPIC_PREFIX", cfg.Broker.TopicPrefix), "/")

	cfg.Influx.URL = p.str("INFLUX_URL", cfg.Influx.URL)
	cfg.Influx.Token = p.str("INFLUX_TOKEN", cfg.Influx.Token)
	cfg.Influx.Org = p.str("INFLUX_ORG", cfg.Influx.Org)
	cfg.Influx.Bucket = p.str("INFLUX_BUCKET", cfg.Influx.Bucket)

	cfg.Kafka.Brokers = p.list("KAFKA_BROKERS")
	cfg.Kafka.Topic = p.str("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Aggregator.Schedule = p.str("AGGREGATE_SCHEDULE", cfg.Aggregator.Schedule)

	cfg.Breaker.Failures = p.int("CB_FAILURES", cfg.Breaker.Failures)
	cfg.Breaker.OpenFor = time.Duration(p.int("CB_OPEN_MS", int(cfg.Breaker.OpenFor.Milliseconds()))) * time.Millisecond

	if p.err != nil {
		return cfg, p.err
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges that parsing alone cannot enforce.
func (c Config) Validate() error {
	var errs []error
	switch {
	case c.Simulation.Interval <= 0:
		errs = append(errs, fmt.Errorf("SIM_INTERVAL must be positive, got %s", c.Simulation.Interval))
	case c.Simulation.Interval < MinSimInterval:
		errs = append(errs, fmt.Errorf("SIM_INTERVAL must be at least %s, got %s", MinSimInterval, c.Simulation.Interval))
	}
	for name, v := range map[string]float64{
		"SIM_STATUS_FLIP_PROB":   c.Simulation.StatusFlipProb,
		"SIM_BATTERY_DRAIN_PROB": c.Simulation.BatteryDrainProb,
		"ALERT_PROBABILITY":      c.Alerts.Probability,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if c.Alerts.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("ALERT_HISTORY_SIZE must be at least 1, got %d", c.Alerts.HistorySize))
	}
	if c.HTTP.Port <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be positive, got %d", c.HTTP.Port))
	}
	if c.GRPC.Port < 0 {
		errs = append(errs, fmt.Errorf("GRPC_PORT must not be negative, got %d", c.GRPC.Port))
	}
	if c.Breaker.Failures < 1 {
		errs = append(errs, fmt.Errorf("CB_FAILURES must be at least 1, got %d", c.Breaker.Failures))
	}
	if strings.TrimSpace(c.Aggregator.Schedule) == "" {
		errs = append(errs, errors.New("AGGREGATE_SCHEDULE is required"))
	}
	return errors.Join(errs...)
}

// parser keeps the first parse error so FromEnv reads like a flat list.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.getenv(key))
}

func (p *parser) fail(key, v string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %s", key, v)
	}
}

func (p *parser) str(key, def string) string {
	if v := p.raw(key); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.raw(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.raw(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.raw(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return d
}

func (p *parser) list(key string) []string {
	raw := p.raw(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
