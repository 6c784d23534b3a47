// Package quality classifies water-quality readings against the fixed safety
// thresholds and scores aggregate community risk.
package quality

import (
	"math"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
)

// Safety thresholds.
const (
	PHMin              = 6.5
	PHMax              = 8.5
	TurbidityMax       = 4.0 // NTU
	BacteriaMax        = 100 // CFU/ml
	BacteriaCritical   = 200 // CFU/ml, escalates two or more violations to critical
	MaxPointsPerSensor = 4
)

// Issue labels, in evaluation order.
const (
	IssuePH        = "pH out of range"
	IssueTurbidity = "High turbidity"
	IssueBacteria  = "Bacterial contamination"
)

// Assessment is the outcome of evaluating one parameter bundle.
type Assessment struct {
	Issues   []string           `json:"issues"`
	Severity entities.RiskLevel `json:"severity"`
}

func (a Assessment) Violations() int {
	return len(a.Issues)
}

// Assess evaluates the three independent conditions and derives the severity.
func Assess(p entities.Parameters) Assessment {
	issues := make([]string, 0, 3)
	if PHOutOfRange(p.PH) {
		issues = append(issues, IssuePH)
	}
	if p.Turbidity > TurbidityMax {
		issues = append(issues, IssueTurbidity)
	}
	if p.Bacteria > BacteriaMax {
		issues = append(issues, IssueBacteria)
	}
	return Assessment{Issues: issues, Severity: severityFor(len(issues), p.Bacteria)}
}

// Classify returns only the severity level of a parameter bundle.
func Classify(p entities.Parameters) entities.RiskLevel {
	return Assess(p).Severity
}

func severityFor(violations, bacteria int) entities.RiskLevel {
	switch {
	case violations >= 2 && bacteria > BacteriaCritical:
		return entities.RiskCritical
	case violations >= 2:
		return entities.RiskHigh
	case violations == 1:
		return entities.RiskMedium
	default:
		return entities.RiskLow
	}
}

func PHOutOfRange(ph float64) bool {
	return ph < PHMin || ph > PHMax
}

// WaterOK reports whether no threshold is violated.
func WaterOK(p entities.Parameters) bool {
	return len(Assess(p).Issues) == 0
}

// ViolationPoints weighs a reading for the risk index: pH 1, turbidity 1,
// bacteria 2.
func ViolationPoints(p entities.Parameters) int {
	points := 0
	if PHOutOfRange(p.PH) {
		points++
	}
	if p.Turbidity > TurbidityMax {
		points++
	}
	if p.Bacteria > BacteriaMax {
		points += 2
	}
	return points
}

// RiskIndex is the aggregate community risk derived from every sensor.
type RiskIndex struct {
	Pct   int                `json:"pct"`
	Level entities.RiskLevel `json:"level"`
}

// RiskIndexOf scores all readings regardless of status. No readings means 0.
func RiskIndexOf(readings []entities.SensorReading) RiskIndex {
	if len(readings) == 0 {
		return RiskIndex{Pct: 0, Level: entities.RiskLow}
	}
	score := 0
	for _, r := range readings {
		score += ViolationPoints(r.Parameters)
	}
	max := len(readings) * MaxPointsPerSensor
	pct := int(math.Floor(float64(score)/float64(max)*100 + 0.5))
	return RiskIndex{Pct: pct, Level: LevelForPct(pct)}
}

// LevelForPct maps a 0-100 percentage to a risk band.
func LevelForPct(pct int) entities.RiskLevel {
	switch {
	case pct < 25:
		return entities.RiskLow
	case pct < 50:
		return entities.RiskMedium
	case pct < 75:
		return entities.RiskHigh
	default:
		return entities.RiskCritical
	}
}
