// Package analytics produces the synthetic trend series, risk projections
// and per-community summaries shown next to the live readings.
package analytics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

// Range selects the length of a trend series.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
)

// ParseRange accepts "7d" and "30d"; anything else falls back to 7d.
func ParseRange(s string) Range {
	if Range(strings.ToLower(strings.TrimSpace(s))) == Range30d {
		return Range30d
	}
	return Range7d
}

// Points is 14 half-day samples for 7d and one per day for 30d.
func (r Range) Points() int {
	if r == Range30d {
		return 30
	}
	return 14
}

type TrendPoint struct {
	Name        string  `json:"name"`
	PH          float64 `json:"ph"`
	Turbidity   float64 `json:"turbidity"`
	Bacteria    int     `json:"bacteria"`
	Temperature float64 `json:"temperature"`
	Risk        int     `json:"risk"`
	Confidence  int     `json:"confidence"`
}

// BuildTrend generates a fresh synthetic series; it is not derived from the
// live readings.
func BuildTrend(r Range, src rng.Source) []TrendPoint {
	out := make([]TrendPoint, r.Points())
	for i := range out {
		out[i] = TrendPoint{
			Name:        fmt.Sprintf("%d", i+1),
			PH:          rng.Between(src, 6.6, 8.3, 2),
			Turbidity:   rng.Between(src, 0.2, 5.5, 1),
			Bacteria:    int(rng.Between(src, 5, 200, 0)),
			Temperature: rng.Between(src, 18, 32, 1),
			Risk:        int(rng.Between(src, 10, 85, 0)),
			Confidence:  int(rng.Between(src, 60, 95, 0)),
		}
	}
	return out
}

type ProjectionPoint struct {
	Week string `json:"week"`
	Risk int    `json:"risk"`
}

// Projection is a five-week outlook with a rising band per week.
func Projection(src rng.Source) []ProjectionPoint {
	out := make([]ProjectionPoint, 5)
	for i := range out {
		lo, hi := 20+float64(i)*10, 80+float64(i)*5
		risk := rng.Clamp(rng.Between(src, lo, hi, 0), 5, 100)
		out[i] = ProjectionPoint{Week: fmt.Sprintf("W+%d", i), Risk: int(risk)}
	}
	return out
}

// defaultForecastRisk is used when there is no trend to read from.
const defaultForecastRisk = 35

// ForecastLevel bands the risk of the latest trend point.
func ForecastLevel(trend []TrendPoint) entities.RiskLevel {
	risk := defaultForecastRisk
	if len(trend) > 0 {
		risk = trend[len(trend)-1].Risk
	}
	return quality.LevelForPct(risk)
}

// ModelConfidence draws a confidence percentage in [70, 97].
func ModelConfidence(src rng.Source) int {
	return int(rng.Between(src, 70, 97, 0))
}

// ConfidenceMemo keeps one confidence value per alert count, so the figure
// only moves when the alert history changes.
type ConfidenceMemo struct {
	mu    sync.Mutex
	src   rng.Source
	count int
	value int
	set   bool
}

func NewConfidenceMemo(src rng.Source) *ConfidenceMemo {
	return &ConfidenceMemo{src: src}
}

func (m *ConfidenceMemo) Get(alertCount int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.count != alertCount {
		m.value = ModelConfidence(m.src)
		m.count = alertCount
		m.set = true
	}
	return m.value
}
