package messages

import "github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"

// AckCommand asks the core to acknowledge one alert.
type AckCommand struct {
	AlertID string `json:"alert_id"`
}

// EmergencyCommand is the manual emergency trigger. Both fields are optional.
type EmergencyCommand struct {
	CommunityID string `json:"community_id,omitempty"`
	Message     string `json:"message,omitempty"`
}

// BroadcastCommand sends an operator message on one channel.
type BroadcastCommand struct {
	Channel entities.Channel `json:"channel"`
	Message string           `json:"message"`
}
