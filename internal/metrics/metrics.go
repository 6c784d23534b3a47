package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation metrics
	SimulationTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chm_simulation_ticks_total",
			Help: "Total number of simulation ticks",
		},
	)

	SimulationTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chm_simulation_tick_duration_seconds",
			Help:    "Time spent mutating and classifying all sensors in one tick",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	SensorsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chm_sensors",
			Help: "Number of sensors per operational status",
		},
		[]string{"status"},
	)

	SensorBattery = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chm_sensor_battery_percent",
			Help: "Battery level reported by each sensor",
		},
		[]string{"sensor_id"},
	)

	RiskIndex = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chm_risk_index_percent",
			Help: "Aggregate community risk index (0-100)",
		},
	)

	// Alert metrics
	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_alerts_emitted_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"severity", "channel"},
	)

	AlertsAcknowledgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chm_alerts_acknowledged_total",
			Help: "Total number of alerts acknowledged for the first time",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_notifications_total",
			Help: "Total number of notifications surfaced",
		},
		[]string{"kind"},
	)

	// Dispatch metrics
	SinkDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_sink_deliveries_total",
			Help: "Deliveries attempted per sink",
		},
		[]string{"sink", "status"}, // status: success, failed, rejected
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_commands_total",
			Help: "Commands received over the broker",
		},
		[]string{"command", "status"}, // status: applied, duplicate, invalid
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chm_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chm_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
