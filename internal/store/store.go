// Package store holds the single in-memory source of truth: the latest
// reading of every sensor, the bounded alert history and the static
// community list.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/alerting"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
)

var ErrAlertNotFound = errors.New("alert not found")

// Store serialises every mutation behind one write lock. Readers always get
// copies, never views into the live slices.
type Store struct {
	mu          sync.RWMutex
	sensors     []entities.SensorReading
	alerts      *alerting.History
	communities []entities.Community
	index       map[string]int // sensor id -> position
}

// Snapshot is a consistent copy of the whole state taken under one read lock.
type Snapshot struct {
	Sensors     []entities.SensorReading
	Alerts      []entities.Alert
	Communities []entities.Community
	Risk        quality.RiskIndex
	TakenAt     time.Time
}

func New(communities []entities.Community, sensors []entities.SensorReading, historySize int) *Store {
	s := &Store{
		sensors:     append([]entities.SensorReading(nil), sensors...),
		alerts:      alerting.NewHistory(historySize),
		communities: append([]entities.Community(nil), communities...),
		index:       make(map[string]int, len(sensors)),
	}
	for i, r := range s.sensors {
		s.index[r.SensorID] = i
	}
	return s
}

// Mutate runs fn with exclusive access to the live state. fn may rewrite
// sensor entries in place but must not change their order or length.
func (s *Store) Mutate(fn func(sensors []entities.SensorReading, alerts *alerting.History)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.sensors, s.alerts)
}

// Acknowledge marks the alert as handled. Unknown ids return ErrAlertNotFound
// and leave the state untouched; changed is false on repeated calls.
func (s *Store) Acknowledge(id string) (a entities.Alert, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts.Get(id); !ok {
		return entities.Alert{}, false, ErrAlertNotFound
	}
	a, changed = s.alerts.Acknowledge(id)
	if !changed {
		a, _ = s.alerts.Get(id)
	}
	return a, changed, nil
}

func (s *Store) Sensors() []entities.SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.SensorReading(nil), s.sensors...)
}

func (s *Store) Sensor(id string) (entities.SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return entities.SensorReading{}, false
	}
	return s.sensors[i], true
}

// Alerts returns the history newest first, optionally filtered on a channel.
func (s *Store) Alerts(ch entities.Channel) []entities.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.ByChannel(ch)
}

func (s *Store) RecentAlerts(n int) []entities.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.Recent(n)
}

func (s *Store) AlertCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.Len()
}

func (s *Store) Communities() []entities.Community {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Community(nil), s.communities...)
}

func (s *Store) Community(id string) (entities.Community, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.communities {
		if c.ID == id {
			return c, true
		}
	}
	return entities.Community{}, false
}

func (s *Store) RiskIndex() quality.RiskIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return quality.RiskIndexOf(s.sensors)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Sensors:     append([]entities.SensorReading(nil), s.sensors...),
		Alerts:      s.alerts.List(),
		Communities: append([]entities.Community(nil), s.communities...),
		Risk:        quality.RiskIndexOf(s.sensors),
		TakenAt:     time.Now().UTC(),
	}
}
