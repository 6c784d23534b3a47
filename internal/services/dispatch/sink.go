// Package dispatch fans simulation output out to the configured delivery
// sinks. Every sink sits behind its own circuit breaker so a dead backend
// never slows the simulation down for longer than the delivery timeout.
package dispatch

import (
	"context"
	"errors"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

var (
	ErrSinkUnavailable = errors.New("sink unavailable")
	ErrSinkClosed      = errors.New("sink closed")
)

// Sink delivers simulation output to one backend. Implementations may
// ignore message kinds they do not store by returning nil.
type Sink interface {
	Name() string
	PublishReadings(ctx context.Context, data []messages.SensorData) error
	PublishAlert(ctx context.Context, evt messages.AlertEvent) error
	PublishNotification(ctx context.Context, n messages.Notification) error
	PublishAggregate(ctx context.Context, r messages.AggregateReport) error
}
