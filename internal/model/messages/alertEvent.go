package messages

import (
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
)

// AlertEventType distinguishes a newly raised alert from an acknowledgement.
type AlertEventType string

const (
	AlertRaised       AlertEventType = "alert.raised"
	AlertAcknowledged AlertEventType = "alert.acknowledged"
)

// AlertEvent carries an alert transition to the sinks.
type AlertEvent struct {
	Type      AlertEventType `json:"type"`
	Alert     entities.Alert `json:"alert"`
	Timestamp time.Time      `json:"timestamp"`
}
