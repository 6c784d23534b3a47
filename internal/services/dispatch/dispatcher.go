package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/config"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/metrics"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

// DefaultTimeout bounds one delivery to one sink.
const DefaultTimeout = 2 * time.Second

type guarded struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker
}

// Dispatcher delivers to all sinks concurrently and waits for them, each
// bounded by the timeout. Failures are logged and counted, never returned.
type Dispatcher struct {
	sinks   []guarded
	timeout time.Duration
	log     zerolog.Logger
}

func mkCB(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	fails := cfg.Failures
	if fails < 1 {
		fails = 1
	}
	log := logger.WithComponent("dispatch")
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("sink", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

func NewDispatcher(cfg config.BreakerConfig, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{timeout: timeout, log: logger.WithComponent("dispatch")}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		d.sinks = append(d.sinks, guarded{sink: s, cb: mkCB(s.Name(), cfg)})
	}
	return d
}

func (d *Dispatcher) PublishReadings(ctx context.Context, data []messages.SensorData) {
	if len(data) == 0 {
		return
	}
	d.fanOut(ctx, "readings", func(ctx context.Context, s Sink) error { return s.PublishReadings(ctx, data) })
}

func (d *Dispatcher) PublishAlert(ctx context.Context, evt messages.AlertEvent) {
	d.fanOut(ctx, string(evt.Type), func(ctx context.Context, s Sink) error { return s.PublishAlert(ctx, evt) })
}

func (d *Dispatcher) PublishNotification(ctx context.Context, n messages.Notification) {
	d.fanOut(ctx, "notification", func(ctx context.Context, s Sink) error { return s.PublishNotification(ctx, n) })
}

func (d *Dispatcher) PublishAggregate(ctx context.Context, r messages.AggregateReport) {
	d.fanOut(ctx, "aggregate", func(ctx context.Context, s Sink) error { return s.PublishAggregate(ctx, r) })
}

func (d *Dispatcher) fanOut(ctx context.Context, what string, fn func(context.Context, Sink) error) {
	var wg sync.WaitGroup
	for _, g := range d.sinks {
		wg.Add(1)
		go func(g guarded) {
			defer wg.Done()
			d.deliver(ctx, g, what, fn)
		}(g)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, g guarded, what string, fn func(context.Context, Sink) error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx, g.sink)
	})
	name := g.sink.Name()
	switch {
	case err == nil:
		metrics.SinkDeliveriesTotal.WithLabelValues(name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.SinkDeliveriesTotal.WithLabelValues(name, "rejected").Inc()
	default:
		metrics.SinkDeliveriesTotal.WithLabelValues(name, "failed").Inc()
		d.log.Warn().Err(err).Str("sink", name).Str("message", what).Msg("delivery failed")
	}
}

// States reports the breaker state of every sink by name.
func (d *Dispatcher) States() map[string]string {
	out := make(map[string]string, len(d.sinks))
	for _, g := range d.sinks {
		out[g.sink.Name()] = g.cb.State().String()
	}
	return out
}

// Healthy is false while any breaker is open.
func (d *Dispatcher) Healthy() bool {
	for _, g := range d.sinks {
		if g.cb.State() == gobreaker.StateOpen {
			return false
		}
	}
	return true
}

func (d *Dispatcher) Sinks() []string {
	out := make([]string, 0, len(d.sinks))
	for _, g := range d.sinks {
		out = append(out, g.sink.Name())
	}
	return out
}
