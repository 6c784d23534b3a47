// Package alerting turns classified readings into alerts and keeps the
// bounded alert history.
package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

// DefaultProbability is the chance that a non-trivial reading raises an alert.
const DefaultProbability = 0.5

// Emitter decides whether a classified reading raises an alert. There is no
// deduplication: a sustained condition keeps raising alerts on later ticks.
type Emitter struct {
	rand        rng.Source
	probability float64
	communities map[string]entities.Community
}

func NewEmitter(src rng.Source, probability float64, communities []entities.Community) *Emitter {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	return &Emitter{
		rand:        src,
		probability: probability,
		communities: entities.CommunityIndex(communities),
	}
}

// Emit builds an alert for the reading when its severity is above low and
// the random gate passes.
func (e *Emitter) Emit(r entities.SensorReading, a quality.Assessment, now time.Time) (entities.Alert, bool) {
	if a.Severity == entities.RiskLow || !a.Severity.IsValid() {
		return entities.Alert{}, false
	}
	if !rng.Chance(e.rand, e.probability) {
		return entities.Alert{}, false
	}

	// ids are unique per sensor only while ticks fall in distinct
	// milliseconds; config.MinSimInterval guarantees it for the ticker.
	name := e.communityName(r.CommunityID)
	return entities.Alert{
		ID:          fmt.Sprintf("%s_%d", r.SensorID, now.UnixMilli()),
		Severity:    a.Severity,
		Title:       fmt.Sprintf("%s - %s", name, headline(a)),
		Message:     fmt.Sprintf("%s: %s", r.Location, strings.Join(a.Issues, ", ")),
		Channel:     e.pickChannel(),
		CommunityID: r.CommunityID,
		SensorID:    r.SensorID,
		CreatedAt:   now.UTC(),
	}, true
}

// communityName resolves a community ID, falling back to the ID itself.
func (e *Emitter) communityName(id string) string {
	if c, ok := e.communities[id]; ok {
		return c.Name
	}
	return id
}

// headline is the first issue of an assessment, "Anomaly" when there is none.
func headline(a quality.Assessment) string {
	if len(a.Issues) == 0 {
		return "Anomaly"
	}
	return a.Issues[0]
}

func (e *Emitter) pickChannel() entities.Channel {
	i := e.rand.Intn(len(entities.Channels))
	if i < 0 || i >= len(entities.Channels) {
		i = 0
	}
	return entities.Channels[i]
}

// ToastTitle is the short operator message surfaced when an alert is emitted.
func (e *Emitter) ToastTitle(al entities.Alert, a quality.Assessment) string {
	return fmt.Sprintf("%s: %s", e.communityName(al.CommunityID), headline(a))
}
