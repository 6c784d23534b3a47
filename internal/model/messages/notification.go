package messages

import (
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
)

// NotificationKind identifies the origin of a transient user-facing message.
type NotificationKind string

const (
	NotifyAlert        NotificationKind = "alert"
	NotifyEmergency    NotificationKind = "emergency"
	NotifyBroadcast    NotificationKind = "broadcast"
	NotifyAcknowledged NotificationKind = "acknowledged"
)

// Notification is the "toast" surfaced to operators. It is never stored.
type Notification struct {
	ID          string             `json:"id"`
	Kind        NotificationKind   `json:"kind"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Severity    entities.RiskLevel `json:"severity,omitempty"`
	Channel     entities.Channel   `json:"channel,omitempty"`
	CommunityID string             `json:"community_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
