package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/alerting"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/config"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	sensor_simulator "github.com/LeonardoBeccarini/community_health_monitor/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/store"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

type fakeSim struct {
	st          *store.Store
	last        time.Time
	running     bool
	emergencies []messages.EmergencyCommand
}

func (f *fakeSim) Acknowledge(_ context.Context, id string) (entities.Alert, error) {
	a, _, err := f.st.Acknowledge(id)
	return a, err
}

func (f *fakeSim) TriggerEmergency(_ context.Context, cmd messages.EmergencyCommand) messages.Notification {
	f.emergencies = append(f.emergencies, cmd)
	return messages.Notification{Kind: messages.NotifyEmergency, Title: sensor_simulator.EmergencyTitle}
}

func (f *fakeSim) Broadcast(_ context.Context, cmd messages.BroadcastCommand) (messages.Notification, error) {
	if !cmd.Channel.IsValid() {
		return messages.Notification{}, fmt.Errorf("%w: channel", sensor_simulator.ErrInvalidCommand)
	}
	return messages.Notification{Kind: messages.NotifyBroadcast, Title: sensor_simulator.BroadcastTitle, Channel: cmd.Channel}, nil
}

func (f *fakeSim) LastTick() time.Time { return f.last }
func (f *fakeSim) Running() bool       { return f.running }

type fakeSinks struct{ healthy bool }

func (f fakeSinks) Healthy() bool { return f.healthy }
func (f fakeSinks) States() map[string]string {
	if f.healthy {
		return map[string]string{"log": "closed"}
	}
	return map[string]string{"log": "open"}
}

func reading(id, community string, status entities.SensorStatus, p entities.Parameters) entities.SensorReading {
	return entities.SensorReading{
		SensorID:     id,
		Location:     "Community Well",
		Parameters:   p,
		Status:       status,
		BatteryLevel: 80,
		CommunityID:  community,
	}
}

func newTestServer(t *testing.T, deps Deps) (*Server, *fakeSim) {
	t.Helper()
	communities := entities.DefaultCommunities()[:2]
	safe := entities.Parameters{PH: 7.2, Turbidity: 1, Bacteria: 10, Temperature: 24}
	dirty := entities.Parameters{PH: 9.1, Turbidity: 6, Bacteria: 250, Temperature: 24}
	st := store.New(communities, []entities.SensorReading{
		reading("WQ_GUWAHATI_001", "COMM_001", entities.StatusOnline, safe),
		reading("WQ_GUWAHATI_002", "COMM_001", entities.StatusOffline, safe),
		reading("WQ_DIBRUGARH_001", "COMM_002", entities.StatusOnline, dirty),
	}, 50)
	st.Mutate(func(_ []entities.SensorReading, h *alerting.History) {
		h.Add(entities.Alert{ID: "a1", Severity: entities.RiskHigh, Channel: entities.ChannelSMS, CommunityID: "COMM_002"})
		h.Add(entities.Alert{ID: "a2", Severity: entities.RiskCritical, Channel: entities.ChannelApp, CommunityID: "COMM_002"})
	})

	sim := &fakeSim{st: st, last: time.Now(), running: true}
	deps.Store = st
	deps.Simulation = sim
	if deps.Rand == nil {
		deps.Rand = rng.New(1)
	}
	return New(config.Default(), deps), sim
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Errorf("request id = %q", got)
	}
}

func TestReadyz(t *testing.T) {
	cases := []struct {
		name  string
		last  time.Time
		sinks SinkHealth
		want  int
	}{
		{"fresh no sinks", time.Now(), nil, http.StatusOK},
		{"fresh healthy", time.Now(), fakeSinks{healthy: true}, http.StatusOK},
		{"never ticked", time.Time{}, nil, http.StatusServiceUnavailable},
		{"stale", time.Now().Add(-time.Hour), nil, http.StatusServiceUnavailable},
		{"sinks open", time.Now(), fakeSinks{healthy: false}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, sim := newTestServer(t, Deps{Sinks: tc.sinks})
			sim.last = tc.last
			rec := do(t, s, http.MethodGet, "/readyz", "")
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodGet, "/api/v1/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decode(t, rec)["data"].(map[string]any)
	if data["communities"].(float64) != 2 || data["active_sensors"].(float64) != 2 ||
		data["total_sensors"].(float64) != 3 || data["unacknowledged"].(float64) != 2 {
		t.Errorf("data = %v", data)
	}
	recent := data["recent_alerts"].([]any)
	if len(recent) != 2 || recent[0].(map[string]any)["id"] != "a2" {
		t.Errorf("recent = %v", recent)
	}
	// dirty sensor scores 4 of 12 points
	risk := data["risk_index"].(map[string]any)
	if risk["pct"].(float64) != 33 || risk["level"] != "medium" {
		t.Errorf("risk = %v", risk)
	}
}

func TestListSensors(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	cases := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 3},
		{"?community=COMM_001", http.StatusOK, 2},
		{"?status=online", http.StatusOK, 2},
		{"?community=COMM_001&status=offline", http.StatusOK, 1},
		{"?community=COMM_999", http.StatusOK, 0},
		{"?status=broken", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		rec := do(t, s, http.MethodGet, "/api/v1/sensors"+tc.query, "")
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", tc.query, rec.Code, tc.code)
			continue
		}
		if tc.code != http.StatusOK {
			continue
		}
		if got := len(decode(t, rec)["data"].([]any)); got != tc.count {
			t.Errorf("%s: count = %d, want %d", tc.query, got, tc.count)
		}
	}
}

func TestGetSensor(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	rec := do(t, s, http.MethodGet, "/api/v1/sensors/WQ_DIBRUGARH_001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decode(t, rec)["data"].(map[string]any)
	if data["sensor_id"] != "WQ_DIBRUGARH_001" {
		t.Errorf("sensor_id = %v", data["sensor_id"])
	}
	assessment := data["assessment"].(map[string]any)
	if assessment["severity"] != "critical" || len(assessment["issues"].([]any)) != 3 {
		t.Errorf("assessment = %v", assessment)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/sensors/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown sensor status = %d", rec.Code)
	}
}

func TestListAlerts(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	cases := []struct {
		query string
		code  int
		ids   []string
	}{
		{"", http.StatusOK, []string{"a2", "a1"}},
		{"?channel=all", http.StatusOK, []string{"a2", "a1"}},
		{"?channel=sms", http.StatusOK, []string{"a1"}},
		{"?channel=voice", http.StatusOK, nil},
		{"?channel=fax", http.StatusBadRequest, nil},
	}
	for _, tc := range cases {
		rec := do(t, s, http.MethodGet, "/api/v1/alerts"+tc.query, "")
		if rec.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", tc.query, rec.Code, tc.code)
			continue
		}
		if tc.code != http.StatusOK {
			continue
		}
		items := decode(t, rec)["data"].([]any)
		if len(items) != len(tc.ids) {
			t.Errorf("%s: got %d alerts, want %d", tc.query, len(items), len(tc.ids))
			continue
		}
		for i, id := range tc.ids {
			if items[i].(map[string]any)["id"] != id {
				t.Errorf("%s: [%d] = %v, want %s", tc.query, i, items[i], id)
			}
		}
	}
}

func TestAcknowledge(t *testing.T) {
	s, sim := newTestServer(t, Deps{})

	rec := do(t, s, http.MethodPost, "/api/v1/alerts/a1/ack", "")
	if rec.Code != http.StatusOK || decode(t, rec)["acknowledged"] != true {
		t.Fatalf("ack: %d %s", rec.Code, rec.Body.String())
	}
	if !sim.st.Alerts(entities.ChannelSMS)[0].Acknowledged {
		t.Error("a1 not acknowledged in store")
	}

	// repeat is idempotent
	if rec := do(t, s, http.MethodPost, "/api/v1/alerts/a1/ack", ""); rec.Code != http.StatusOK {
		t.Errorf("repeat ack status = %d", rec.Code)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/alerts/missing/ack", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown ack status = %d", rec.Code)
	}
	if sim.st.AlertCount() != 2 {
		t.Errorf("alert count changed to %d", sim.st.AlertCount())
	}
}

func TestEmergency(t *testing.T) {
	s, sim := newTestServer(t, Deps{})

	if rec := do(t, s, http.MethodPost, "/api/v1/emergency", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("empty body status = %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodPost, "/api/v1/emergency", `{"community_id":"COMM_002","message":"boil water"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(sim.emergencies) != 2 || sim.emergencies[1].CommunityID != "COMM_002" {
		t.Errorf("emergencies = %+v", sim.emergencies)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/emergency", `{"community_id":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

func TestBroadcast(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	cases := []struct {
		body string
		want int
	}{
		{`{"channel":"sms","message":"Boil water"}`, http.StatusAccepted},
		{`{"channel":"pigeon","message":"Boil water"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := do(t, s, http.MethodPost, "/api/v1/broadcast", tc.body); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.body, rec.Code, tc.want)
		}
	}
}

func TestWaterQualityAndAnalytics(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	cases := []struct {
		path   string
		points int
	}{
		{"/api/v1/water-quality", 14},
		{"/api/v1/water-quality?range=30d", 30},
		{"/api/v1/analytics", 14},
		{"/api/v1/analytics?range=30d", 30},
		{"/api/v1/reports", 30},
	}
	for _, tc := range cases {
		rec := do(t, s, http.MethodGet, tc.path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tc.path, rec.Code)
			continue
		}
		data := decode(t, rec)["data"].(map[string]any)
		if got := len(data["trend"].([]any)); got != tc.points {
			t.Errorf("%s: trend has %d points, want %d", tc.path, got, tc.points)
		}
	}

	data := decode(t, do(t, s, http.MethodGet, "/api/v1/water-quality", ""))["data"].(map[string]any)
	agg := data["aggregates"].(map[string]any)
	if agg["online_sensors"].(float64) != 2 || agg["total_sensors"].(float64) != 3 {
		t.Errorf("aggregates = %v", agg)
	}
	if th := data["thresholds"].(map[string]any); th["bacteria_max"].(float64) != 100 {
		t.Errorf("thresholds = %v", th)
	}

	an := decode(t, do(t, s, http.MethodGet, "/api/v1/analytics", ""))["data"].(map[string]any)
	if len(an["projection"].([]any)) != 5 {
		t.Errorf("projection = %v", an["projection"])
	}
	// memoized while the alert count is unchanged
	again := decode(t, do(t, s, http.MethodGet, "/api/v1/analytics", ""))["data"].(map[string]any)
	if an["model_confidence"] != again["model_confidence"] {
		t.Errorf("confidence changed: %v then %v", an["model_confidence"], again["model_confidence"])
	}
}

func TestCommunities(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	cases := map[string]int{"": 2, "?q=guwa": 1, "?q=VILLAGE": 1, "?q=nowhere": 0}
	for q, want := range cases {
		rec := do(t, s, http.MethodGet, "/api/v1/communities"+q, "")
		if got := len(decode(t, rec)["data"].([]any)); got != want {
			t.Errorf("%q: %d profiles, want %d", q, got, want)
		}
	}
}

func TestEventsRouteOnlyWhenConfigured(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	if rec := do(t, s, http.MethodGet, "/events/alerts/latest", ""); rec.Code != http.StatusNotFound {
		t.Errorf("without events: status = %d", rec.Code)
	}

	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	})
	s, _ = newTestServer(t, Deps{Events: events})
	rec := do(t, s, http.MethodGet, "/events/alerts/latest", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Errorf("with events: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRecoveryAndCORS(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	s.Engine().GET("/boom", func(*gin.Context) { panic("boom") })

	if rec := do(t, s, http.MethodGet, "/boom", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d", rec.Code)
	}

	rec := do(t, s, http.MethodOptions, "/api/v1/broadcast", "")
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}
}
