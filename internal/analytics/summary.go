package analytics

import (
	"strings"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

// Aggregates are averages over online sensors only. With none online every
// average is zero.
type Aggregates struct {
	OnlineSensors int     `json:"online_sensors"`
	TotalSensors  int     `json:"total_sensors"`
	PH            float64 `json:"ph"`
	Turbidity     float64 `json:"turbidity"`
	Bacteria      int     `json:"bacteria"`
	Temperature   float64 `json:"temperature"`
}

func OnlineAggregates(readings []entities.SensorReading) Aggregates {
	agg := Aggregates{TotalSensors: len(readings)}
	var ph, turb, bact, temp float64
	for _, r := range readings {
		if !r.Online() {
			continue
		}
		agg.OnlineSensors++
		ph += r.Parameters.PH
		turb += r.Parameters.Turbidity
		bact += float64(r.Parameters.Bacteria)
		temp += r.Parameters.Temperature
	}
	if agg.OnlineSensors == 0 {
		return agg
	}
	n := float64(agg.OnlineSensors)
	agg.PH = rng.Round(ph/n, 2)
	agg.Turbidity = rng.Round(turb/n, 2)
	agg.Bacteria = int(rng.Round(bact/n, 0))
	agg.Temperature = rng.Round(temp/n, 1)
	return agg
}

// Profile is a community enriched with the state of its sensors.
type Profile struct {
	entities.Community
	OnlineSensors int  `json:"online_sensors"`
	TotalSensors  int  `json:"total_sensors"`
	WaterOK       bool `json:"water_ok"`
}

// Profiles summarises each community whose name contains query (case
// insensitive). Water is judged on the community's first sensor only; a
// community without sensors counts as OK.
func Profiles(communities []entities.Community, readings []entities.SensorReading, query string) []Profile {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Profile, 0, len(communities))
	for _, c := range communities {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		p := Profile{Community: c, WaterOK: true}
		first := true
		for _, r := range readings {
			if r.CommunityID != c.ID {
				continue
			}
			if first {
				p.WaterOK = quality.WaterOK(r.Parameters)
				first = false
			}
			p.TotalSensors++
			if r.Online() {
				p.OnlineSensors++
			}
		}
		out = append(out, p)
	}
	return out
}
