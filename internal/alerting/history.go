package alerting

import "github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"

// DefaultHistorySize is the number of alerts kept before the oldest is evicted.
const DefaultHistorySize = 50

// History is a bounded, newest-first alert list. It is not safe for
// concurrent use; the store serialises access.
type History struct {
	capacity int
	items    []entities.Alert
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity, items: make([]entities.Alert, 0, capacity)}
}

// Add prepends the alert and evicts the oldest entries beyond capacity.
func (h *History) Add(a entities.Alert) {
	if len(h.items) < h.capacity {
		h.items = append(h.items, entities.Alert{})
	}
	copy(h.items[1:], h.items[:len(h.items)-1])
	h.items[0] = a
}

// Acknowledge flips the flag of the alert with the given id. It reports
// whether the flag changed; unknown ids and repeated calls change nothing.
func (h *History) Acknowledge(id string) (entities.Alert, bool) {
	for i := range h.items {
		if h.items[i].ID != id {
			continue
		}
		if h.items[i].Acknowledged {
			return h.items[i], false
		}
		h.items[i].Acknowledged = true
		return h.items[i], true
	}
	return entities.Alert{}, false
}

func (h *History) Get(id string) (entities.Alert, bool) {
	for _, a := range h.items {
		if a.ID == id {
			return a, true
		}
	}
	return entities.Alert{}, false
}

func (h *History) Len() int      { return len(h.items) }
func (h *History) Capacity() int { return h.capacity }

// List returns a copy of every alert, newest first.
func (h *History) List() []entities.Alert {
	out := make([]entities.Alert, len(h.items))
	copy(out, h.items)
	return out
}

// Recent returns at most n newest alerts.
func (h *History) Recent(n int) []entities.Alert {
	if n > len(h.items) {
		n = len(h.items)
	}
	if n < 0 {
		n = 0
	}
	out := make([]entities.Alert, n)
	copy(out, h.items[:n])
	return out
}

// ByChannel filters the history on one delivery channel. An empty channel
// returns everything.
func (h *History) ByChannel(ch entities.Channel) []entities.Alert {
	if ch == "" {
		return h.List()
	}
	out := make([]entities.Alert, 0, len(h.items))
	for _, a := range h.items {
		if a.Channel == ch {
			out = append(out, a)
		}
	}
	return out
}

func (h *History) Unacknowledged() int {
	n := 0
	for _, a := range h.items {
		if !a.Acknowledged {
			n++
		}
	}
	return n
}
