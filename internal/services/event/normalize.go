package event

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

// Measurements written to Influx.
const (
	MeasurementReading      = "water_quality"
	MeasurementAlert        = "alert_event"
	MeasurementNotification = "notification"
)

// ReadingToPoint normalizza una lettura in un *write.Point per InfluxDB.
func ReadingToPoint(d msg.SensorData) *write.Point {
	tags := map[string]string{
		"sensor_id":    d.SensorID,
		"community_id": d.CommunityID,
		"status":       string(d.Status),
		"severity":     string(d.Severity),
	}
	fields := map[string]interface{}{
		"ph":          d.Parameters.PH,
		"turbidity":   d.Parameters.Turbidity,
		"bacteria":    int64(d.Parameters.Bacteria),
		"temperature": d.Parameters.Temperature,
		"battery":     int64(d.Battery),
		"issues":      int64(len(d.Issues)),
	}
	return influxdb2.NewPoint(MeasurementReading, tags, fields, d.Timestamp)
}

// AlertToPoint records an alert transition. The alert id is a field so the
// series cardinality stays bounded.
func AlertToPoint(e msg.AlertEvent) *write.Point {
	a := e.Alert
	tags := map[string]string{
		"event_type":   string(e.Type),
		"severity":     string(a.Severity),
		"channel":      string(a.Channel),
		"community_id": a.CommunityID,
	}
	if a.SensorID != "" {
		tags["sensor_id"] = a.SensorID
	}
	fields := map[string]interface{}{
		"alert_id":     a.ID,
		"title":        a.Title,
		"message":      a.Message,
		"acknowledged": a.Acknowledged,
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = a.CreatedAt
	}
	return influxdb2.NewPoint(MeasurementAlert, tags, fields, ts)
}

func NotificationToPoint(n msg.Notification) *write.Point {
	tags := map[string]string{"kind": string(n.Kind)}
	if n.Severity != "" {
		tags["severity"] = string(n.Severity)
	}
	if n.Channel != "" {
		tags["channel"] = string(n.Channel)
	}
	if n.CommunityID != "" {
		tags["community_id"] = n.CommunityID
	}
	fields := map[string]interface{}{
		"id":          n.ID,
		"title":       n.Title,
		"description": n.Description,
	}
	return influxdb2.NewPoint(MeasurementNotification, tags, fields, n.CreatedAt)
}

const MeasurementAggregate = "aggregate"

func AggregateToPoint(r msg.AggregateReport) *write.Point {
	tags := map[string]string{"risk_level": string(r.RiskLevel)}
	fields := map[string]interface{}{
		"online_sensors": int64(r.OnlineSensors),
		"total_sensors":  int64(r.TotalSensors),
		"ph":             r.PH,
		"turbidity":      r.Turbidity,
		"bacteria":       int64(r.Bacteria),
		"temperature":    r.Temperature,
		"risk_pct":       int64(r.RiskPct),
	}
	return influxdb2.NewPoint(MeasurementAggregate, tags, fields, r.Timestamp)
}
