package event

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	msg "github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

var ts = time.Date(2025, 9, 21, 10, 0, 0, 0, time.UTC)

func line(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
	errs   chan error
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}
func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }
func (f *fakeWriteAPI) Flush()               {}

type conn bool

func (c conn) IsConnectionOpen() bool { return bool(c) }

type pinger struct {
	ok  bool
	err error
}

func (p pinger) Ping(context.Context) (bool, error) { return p.ok, p.err }

func TestReadingToPoint(t *testing.T) {
	p := ReadingToPoint(msg.SensorData{
		SensorID:    "WQ_TEZPUR_001",
		CommunityID: "COMM_003",
		Status:      entities.StatusOnline,
		Battery:     80,
		Severity:    entities.RiskMedium,
		Issues:      []string{"High turbidity"},
		Parameters:  entities.Parameters{PH: 7.1, Turbidity: 4.5, Bacteria: 30, Temperature: 22.5},
		Timestamp:   ts,
	})
	got := line(p)
	for _, want := range []string{
		"water_quality,", "community_id=COMM_003", "sensor_id=WQ_TEZPUR_001", "severity=medium",
		"ph=7.1", "turbidity=4.5", "bacteria=30i", "battery=80i", "issues=1i",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}
}

func TestAlertToPointFallsBackToCreatedAt(t *testing.T) {
	a := entities.Alert{ID: "WQ_X_001_1", Severity: entities.RiskHigh, Channel: entities.ChannelSMS,
		CommunityID: "COMM_001", Title: "t", CreatedAt: ts}
	p := AlertToPoint(msg.AlertEvent{Type: msg.AlertRaised, Alert: a})
	if !p.Time().Equal(ts) {
		t.Errorf("time = %v", p.Time())
	}
	got := line(p)
	for _, want := range []string{"alert_event,", "event_type=alert.raised", `alert_id="WQ_X_001_1"`, "acknowledged=false"} {
		if !strings.Contains(got, want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "sensor_id") {
		t.Error("empty sensor id must not become a tag")
	}
}

func TestMQTTHandlerRoutesTopics(t *testing.T) {
	var kinds []string
	h := NewMQTTHandler("chm/", func(kind string, _ *write.Point) { kinds = append(kinds, kind) })

	cases := []fakeMessage{
		{"chm/sensor/data/COMM_001/WQ_A_001", []byte(`{"sensor_id":"WQ_A_001","timestamp":"2025-09-21T10:00:00Z"}`)},
		{"chm/sensor/aggregated", []byte(`{"online_sensors":3}`)},
		{"chm/alert/high/COMM_001", []byte(`{"type":"alert.raised","alert":{"id":"a1"}}`)},
		{"chm/notify/emergency", []byte(`{"kind":"emergency","title":"Emergency Alert"}`)},
		{"other/topic", []byte(`garbage`)},
	}
	for _, m := range cases {
		if err := h.Handle("", m); err != nil {
			t.Fatalf("%s: %v", m.topic, err)
		}
	}
	want := []string{MeasurementReading, MeasurementAggregate, MeasurementAlert, MeasurementNotification}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
	if len(h.Topics()) != 4 || h.Topics()[0] != "chm/sensor/data/#" {
		t.Errorf("topics = %v", h.Topics())
	}
}

func TestMQTTHandlerRejectsBadPayloads(t *testing.T) {
	h := NewMQTTHandler("chm", nil)
	bad := []fakeMessage{
		{"chm/sensor/data/C/S", []byte(`{}`)},
		{"chm/sensor/data/C/S", []byte(`{`)},
		{"chm/alert/high/C", []byte(`{"alert":{}}`)},
	}
	for _, m := range bad {
		if err := h.Handle("", m); err == nil {
			t.Errorf("%s %s: expected error", m.topic, m.payload)
		}
	}
	if err := h.Handle("", bad[0]); !errors.Is(err, ErrMissingSensor) {
		t.Errorf("err = %v, want ErrMissingSensor", err)
	}
}

func TestWriterTracksErrors(t *testing.T) {
	api := &fakeWriteAPI{errs: make(chan error, 1)}
	w := NewWriter(api)
	w.Write(MeasurementReading, ReadingToPoint(msg.SensorData{SensorID: "S", Timestamp: ts}))
	w.Write(MeasurementReading, ReadingToPoint(msg.SensorData{SensorID: "S", Timestamp: ts}))
	if w.Count(MeasurementReading) != 2 || len(api.points) != 2 {
		t.Errorf("count = %d points = %d", w.Count(MeasurementReading), len(api.points))
	}
	if w.LastErrorAge() < time.Hour {
		t.Error("fresh writer must report an old error age")
	}

	api.errs <- errors.New("boom")
	deadline := time.Now().Add(2 * time.Second)
	for w.LastErrorAge() > time.Minute {
		if time.Now().After(deadline) {
			t.Fatal("write error not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(api.errs)

	var nilWriter *Writer
	if nilWriter.Count("x") != 0 || nilWriter.LastErrorAge() < time.Hour {
		t.Error("nil writer must be inert")
	}
}

func TestHealthAndReady(t *testing.T) {
	w := NewWriter(&fakeWriteAPI{errs: make(chan error)})
	cases := []struct {
		name       string
		mqtt       ConnChecker
		influx     Pinger
		wantStatus string
		wantReady  int
	}{
		{"all up", conn(true), pinger{ok: true}, `"status":"ok"`, http.StatusOK},
		{"influx down", conn(true), pinger{err: errors.New("x")}, `"status":"degraded"`, http.StatusServiceUnavailable},
		{"all down", conn(false), nil, `"status":"down"`, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tc.mqtt, tc.influx, w).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if !strings.Contains(rec.Body.String(), tc.wantStatus) {
				t.Errorf("health body = %s", rec.Body.String())
			}
			rec = httptest.NewRecorder()
			NewReadyHandler(tc.mqtt, tc.influx, w, time.Second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tc.wantReady {
				t.Errorf("ready code = %d, want %d", rec.Code, tc.wantReady)
			}
		})
	}
}

func TestAlertQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events/alerts/latest?limit=9999&minutes=0&severity=HIGH", nil)
	p := parseAlertQuery(r, 1440, 20, 2000)
	if p.Limit != 500 || p.Minutes != 1 || p.TimeoutMS != 2000 || p.Severity != "high" {
		t.Errorf("params = %+v", p)
	}
	flux := buildAlertFlux("water", p)
	for _, want := range []string{`from(bucket: "water")`, "range(start: -1m)", `r.severity == "high"`, "limit(n:500)"} {
		if !strings.Contains(flux, want) {
			t.Errorf("flux missing %q:\n%s", want, flux)
		}
	}

	r = httptest.NewRequest(http.MethodGet, "/events/alerts/latest?severity=bogus&limit=x", nil)
	p = parseAlertQuery(r, 1440, 20, 2000)
	if p.Severity != "" || p.Limit != 20 || p.Minutes != 1440 {
		t.Errorf("defaults = %+v", p)
	}
}

type failingQuerier struct{}

func (failingQuerier) Query(context.Context, string) (*api.QueryTableResult, error) {
	return nil, errors.New("unreachable")
}

func TestAlertsLatestQueryError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAlertsLatestHandler(failingQuerier{}, "water").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/alerts/latest", nil))
	if rec.Body.String() != "[]" || rec.Header().Get("X-Error") != "influx-query-error" {
		t.Errorf("body=%q header=%q", rec.Body.String(), rec.Header().Get("X-Error"))
	}
}
