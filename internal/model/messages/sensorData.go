package messages

import (
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
)

// SensorData is published for every sensor on every tick.
type SensorData struct {
	SensorID    string                `json:"sensor_id"`
	CommunityID string                `json:"community_id"`
	Location    string                `json:"location"`
	Status      entities.SensorStatus `json:"status"`
	Battery     int                   `json:"battery_level"`
	Parameters  entities.Parameters   `json:"parameters"`
	Severity    entities.RiskLevel    `json:"severity"`
	Issues      []string              `json:"issues,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

// AggregateReport summarises the online sensors at a point in time.
type AggregateReport struct {
	OnlineSensors int                `json:"online_sensors"`
	TotalSensors  int                `json:"total_sensors"`
	PH            float64            `json:"ph"`
	Turbidity     float64            `json:"turbidity"`
	Bacteria      int                `json:"bacteria"`
	Temperature   float64            `json:"temperature"`
	RiskPct       int                `json:"risk_pct"`
	RiskLevel     entities.RiskLevel `json:"risk_level"`
	Timestamp     time.Time          `json:"timestamp"`
}
