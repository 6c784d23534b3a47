package dashboard

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/analytics"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	sensor_simulator "github.com/LeonardoBeccarini/community_health_monitor/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/store"
)

const recentAlerts = 5

// sensorView is one reading plus its live classification.
type sensorView struct {
	model.SensorReading
	Assessment quality.Assessment `json:"assessment"`
}

type thresholds struct {
	PHMin        float64 `json:"ph_min"`
	PHMax        float64 `json:"ph_max"`
	TurbidityMax float64 `json:"turbidity_max"`
	BacteriaMax  int     `json:"bacteria_max"`
}

var safetyThresholds = thresholds{
	PHMin:        quality.PHMin,
	PHMax:        quality.PHMax,
	TurbidityMax: quality.TurbidityMax,
	BacteriaMax:  quality.BacteriaMax,
}

func (s *Server) handleDashboard(c *gin.Context) {
	snap := s.store.Snapshot()

	active := 0
	unacked := 0
	for _, r := range snap.Sensors {
		if r.Online() {
			active++
		}
	}
	for _, a := range snap.Alerts {
		if !a.Acknowledged {
			unacked++
		}
	}
	recent := snap.Alerts
	if len(recent) > recentAlerts {
		recent = recent[:recentAlerts]
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"communities":      len(snap.Communities),
			"active_sensors":   active,
			"total_sensors":    len(snap.Sensors),
			"risk_index":       snap.Risk,
			"recent_alerts":    recent,
			"unacknowledged":   unacked,
			"model_confidence": s.confidence.Get(len(snap.Alerts)),
		},
		"meta": gin.H{"taken_at": snap.TakenAt},
	})
}

func (s *Server) handleListSensors(c *gin.Context) {
	community := c.Query("community")
	status := model.SensorStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	out := make([]sensorView, 0)
	for _, r := range s.store.Sensors() {
		if community != "" && r.CommunityID != community {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, sensorView{SensorReading: r, Assessment: quality.Assess(r.Parameters)})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{"count": len(out)},
	})
}

func (s *Server) handleGetSensor(c *gin.Context) {
	r, ok := s.store.Sensor(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sensor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sensorView{SensorReading: r, Assessment: quality.Assess(r.Parameters)}})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	var ch model.Channel
	switch raw := strings.ToLower(c.DefaultQuery("channel", "all")); raw {
	case "all", "":
	default:
		ch = model.Channel(raw)
		if !ch.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
			return
		}
	}

	alerts := s.store.Alerts(ch)
	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
		"meta": gin.H{"count": len(alerts)},
	})
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	alert, err := s.sim.Acknowledge(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "data": alert})
}

func (s *Server) handleEmergency(c *gin.Context) {
	var cmd messages.EmergencyCommand
	// body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	n := s.sim.TriggerEmergency(c.Request.Context(), cmd)
	c.JSON(http.StatusAccepted, gin.H{"data": n})
}

func (s *Server) handleBroadcast(c *gin.Context) {
	var cmd messages.BroadcastCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.sim.Broadcast(c.Request.Context(), cmd)
	if errors.Is(err, sensor_simulator.ErrInvalidCommand) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": n})
}

func (s *Server) handleWaterQuality(c *gin.Context) {
	window := analytics.ParseRange(c.Query("range"))
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"aggregates": analytics.OnlineAggregates(s.store.Sensors()),
			"thresholds": safetyThresholds,
			"trend":      analytics.BuildTrend(window, s.rand),
		},
		"meta": gin.H{"range": window},
	})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	window := analytics.ParseRange(c.Query("range"))
	trend := analytics.BuildTrend(window, s.rand)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"trend":            trend,
			"model_confidence": s.confidence.Get(s.store.AlertCount()),
			"projection":       analytics.Projection(s.rand),
			"forecast_level":   analytics.ForecastLevel(trend),
		},
		"meta": gin.H{"range": window},
	})
}

func (s *Server) handleCommunities(c *gin.Context) {
	profiles := analytics.Profiles(s.store.Communities(), s.store.Sensors(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"data": profiles,
		"meta": gin.H{"count": len(profiles)},
	})
}

func (s *Server) handleReports(c *gin.Context) {
	snap := s.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"trend":       analytics.BuildTrend(analytics.Range30d, s.rand),
			"risk_index":  snap.Risk,
			"communities": analytics.Profiles(snap.Communities, snap.Sensors, ""),
			"alerts":      len(snap.Alerts),
		},
		"meta": gin.H{"range": analytics.Range30d, "generated_at": time.Now().UTC()},
	})
}
