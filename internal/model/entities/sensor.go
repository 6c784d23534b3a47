package entities

import "time"

// SensorStatus is the operational state reported by a water-quality sensor.
type SensorStatus string

const (
	StatusOnline      SensorStatus = "online"
	StatusOffline     SensorStatus = "offline"
	StatusMaintenance SensorStatus = "maintenance"
)

// SensorStatuses lists every status in the order used for uniform draws.
var SensorStatuses = []SensorStatus{StatusOnline, StatusOffline, StatusMaintenance}

func (s SensorStatus) IsValid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance:
		return true
	default:
		return false
	}
}

// Parameters is the measurement bundle captured by a sensor on a single tick.
type Parameters struct {
	PH          float64   `json:"ph"`
	Turbidity   float64   `json:"turbidity"`   // NTU
	Bacteria    int       `json:"bacteria"`    // CFU/ml
	Temperature float64   `json:"temperature"` // °C
	Timestamp   time.Time `json:"timestamp"`
}

// SensorReading is the latest known state of one sensor. Only the most recent
// value is kept; every tick replaces it.
type SensorReading struct {
	SensorID        string       `json:"sensor_id"`
	Location        string       `json:"location"`
	Coordinates     [2]float64   `json:"coordinates"` // lat, lon
	Parameters      Parameters   `json:"parameters"`
	Status          SensorStatus `json:"status"`
	BatteryLevel    int          `json:"battery_level"` // percent
	LastMaintenance string       `json:"last_maintenance"`
	CommunityID     string       `json:"community_id"`
}

func (r SensorReading) Online() bool {
	return r.Status == StatusOnline
}
