package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// AlertRecord is one alert transition read back from Influx.
type AlertRecord struct {
	AlertID      string `json:"alert_id"`
	EventType    string `json:"event_type"`
	Severity     string `json:"severity"`
	Channel      string `json:"channel"`
	CommunityID  string `json:"community_id"`
	SensorID     string `json:"sensor_id,omitempty"`
	Title        string `json:"title"`
	Acknowledged bool   `json:"acknowledged"`
	Time         string `json:"time"` // RFC3339
}

// Querier is satisfied by api.QueryAPI.
type Querier interface {
	Query(ctx context.Context, query string) (*api.QueryTableResult, error)
}

type alertQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
	Severity  string
}

func parseAlertQuery(r *http.Request, defMin, defLim, defTOms int) alertQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	sev := strings.ToLower(strings.TrimSpace(q.Get("severity")))
	switch sev {
	case "low", "medium", "high", "critical":
	default:
		sev = ""
	}
	return alertQueryParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
		Severity:  sev,
	}
}

func buildAlertFlux(bucket string, p alertQueryParams) string {
	filter := fmt.Sprintf(`r._measurement == %q`, MeasurementAlert)
	if p.Severity != "" {
		filter += fmt.Sprintf(` and r.severity == %q`, p.Severity)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => %s)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, p.Minutes, filter, p.Limit)
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func runAlerts(w http.ResponseWriter, r *http.Request, q Querier, bucket string, defMin, defLim int) {
	p := parseAlertQuery(r, defMin, defLim, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	res, err := q.Query(ctx, buildAlertFlux(bucket, p))
	if err != nil {
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer func() { _ = res.Close() }()

	out := make([]AlertRecord, 0, p.Limit)
	for res.Next() {
		rec := res.Record()
		ack, _ := rec.ValueByKey("acknowledged").(bool)
		out = append(out, AlertRecord{
			AlertID:      str(rec.ValueByKey("alert_id")),
			EventType:    str(rec.ValueByKey("event_type")),
			Severity:     str(rec.ValueByKey("severity")),
			Channel:      str(rec.ValueByKey("channel")),
			CommunityID:  str(rec.ValueByKey("community_id")),
			SensorID:     str(rec.ValueByKey("sensor_id")),
			Title:        str(rec.ValueByKey("title")),
			Acknowledged: ack,
			Time:         rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}
	_ = json.NewEncoder(w).Encode(out)
}

// NewAlertsLatestHandler serves
// GET /events/alerts/latest?limit=20[&minutes=1440][&severity=high]
func NewAlertsLatestHandler(q Querier, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runAlerts(w, r, q, bucket, 1440, 20)
	})
}
