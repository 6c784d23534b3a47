package entities

import "time"

// RiskLevel is the ordinal classification low < medium < high < critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank gives the ordering position of the level; unknown levels rank below low.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Rank() >= other.Rank()
}

func (l RiskLevel) IsValid() bool {
	return l.Rank() >= 0
}

// Channel is the delivery channel an alert is addressed to.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelApp   Channel = "app"
	ChannelVoice Channel = "voice"
)

// Channels lists every channel in the order used for uniform draws.
var Channels = []Channel{ChannelSMS, ChannelApp, ChannelVoice}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelApp, ChannelVoice:
		return true
	default:
		return false
	}
}

// Alert is raised by the emitter when a reading crosses the safety thresholds.
// After creation only Acknowledged may change.
type Alert struct {
	ID           string    `json:"id"`
	Severity     RiskLevel `json:"severity"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Channel      Channel   `json:"channel"`
	CommunityID  string    `json:"community_id"`
	SensorID     string    `json:"sensor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Acknowledged bool      `json:"acknowledged"`
}
