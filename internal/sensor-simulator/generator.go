package sensor_simulator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

// ====== Tunables ======
const (
	// batteryFloor: il livello batteria non scende mai sotto questa soglia.
	batteryFloor = 5

	// lastMaintenance is the maintenance date stamped on every seeded sensor.
	lastMaintenance = "2025-09-20"
)

// Source produces the next reading of a sensor from its previous one. A real
// ingestion feed can replace the random implementation.
type Source interface {
	Next(prev entities.SensorReading, now time.Time) entities.SensorReading
}

// Drift bounds a random walk: each tick adds a step in [-Step, Step] and
// clamps the result to [Min, Max].
type Drift struct {
	Step, Min, Max float64
}

func (d Drift) apply(src rng.Source, v float64) float64 {
	return rng.Clamp(v+rng.Between(src, -d.Step, d.Step, 2), d.Min, d.Max)
}

// DriftProfile holds the per-tick dynamics of the random source.
type DriftProfile struct {
	PH          Drift
	Turbidity   Drift
	Temperature Drift

	// Bacteria moves by an integer step in [BacteriaDown, BacteriaUp].
	BacteriaDown, BacteriaUp float64
	BacteriaMax              float64

	StatusFlipProb   float64
	BatteryDrainProb float64
}

// DefaultDriftProfile is biased upwards on bacteria so contamination builds
// up over time.
func DefaultDriftProfile() DriftProfile {
	return DriftProfile{
		PH:               Drift{Step: 0.15, Min: 5.5, Max: 9.5},
		Turbidity:        Drift{Step: 0.4, Min: 0, Max: 10},
		Temperature:      Drift{Step: 0.4, Min: 10, Max: 40},
		BacteriaDown:     -5,
		BacteriaUp:       12,
		BacteriaMax:      500,
		StatusFlipProb:   0.04,
		BatteryDrainProb: 0.3,
	}
}

// RandomSource mantiene il profilo di deriva e genera letture casuali.
type RandomSource struct {
	rand    rng.Source
	profile DriftProfile
}

func NewRandomSource(src rng.Source, profile DriftProfile) *RandomSource {
	return &RandomSource{rand: src, profile: profile}
}

// Next applica una deriva limitata ai parametri e restituisce la nuova lettura.
// Status changes are independent of the measured values.
func (g *RandomSource) Next(prev entities.SensorReading, now time.Time) entities.SensorReading {
	p := g.profile
	next := prev

	if rng.Chance(g.rand, p.StatusFlipProb) {
		next.Status = entities.SensorStatuses[g.pick(len(entities.SensorStatuses))]
	}

	next.Parameters = entities.Parameters{
		PH:          p.PH.apply(g.rand, prev.Parameters.PH),
		Turbidity:   p.Turbidity.apply(g.rand, prev.Parameters.Turbidity),
		Bacteria:    g.nextBacteria(prev.Parameters.Bacteria),
		Temperature: p.Temperature.apply(g.rand, prev.Parameters.Temperature),
		Timestamp:   now.UTC(),
	}

	if rng.Chance(g.rand, p.BatteryDrainProb) {
		next.BatteryLevel--
	}
	if next.BatteryLevel < batteryFloor {
		next.BatteryLevel = batteryFloor
	}
	return next
}

func (g *RandomSource) nextBacteria(b int) int {
	step := rng.Between(g.rand, g.profile.BacteriaDown, g.profile.BacteriaUp, 0)
	return int(rng.Round(rng.Clamp(float64(b)+step, 0, g.profile.BacteriaMax), 0))
}

func (g *RandomSource) pick(n int) int {
	i := g.rand.Intn(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// SensorID builds the WQ_<COMMUNITY>_<NNN> identifier from the first word of
// the community name and the 1-based location number.
func SensorID(communityName string, location int) string {
	word := communityName
	if f := strings.Fields(communityName); len(f) > 0 {
		word = f[0]
	}
	return fmt.Sprintf("WQ_%s_%03d", strings.ToUpper(word), location)
}

// SeedReadings creates one sensor per community and location with plausible
// initial values, most of them online.
func SeedReadings(communities []entities.Community, locations []string, src rng.Source, now time.Time) []entities.SensorReading {
	out := make([]entities.SensorReading, 0, len(communities)*len(locations))
	for ci, c := range communities {
		for li, loc := range locations {
			out = append(out, entities.SensorReading{
				SensorID: SensorID(c.Name, li+1),
				Location: fmt.Sprintf("%s - %s", c.Name, loc),
				Coordinates: [2]float64{
					26.1 + float64(ci)*0.1 + float64(li)*0.02,
					91.7 + float64(ci)*0.05 + float64(li)*0.01,
				},
				Parameters: entities.Parameters{
					PH:          rng.Between(src, 6.6, 8.2, 2),
					Turbidity:   rng.Between(src, 0.2, 3.5, 2),
					Bacteria:    int(rng.Between(src, 5, 60, 0)),
					Temperature: rng.Between(src, 18, 30, 1),
					Timestamp:   now.UTC(),
				},
				Status:          seedStatus(src),
				BatteryLevel:    int(math.Round(rng.Between(src, 40, 100, 0))),
				LastMaintenance: lastMaintenance,
				CommunityID:     c.ID,
			})
		}
	}
	return out
}

func seedStatus(src rng.Source) entities.SensorStatus {
	if rng.Chance(src, 0.85) {
		return entities.StatusOnline
	}
	if rng.Chance(src, 0.5) {
		return entities.StatusMaintenance
	}
	return entities.StatusOffline
}
