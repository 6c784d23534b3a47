// Package dashboard serves the monitoring API consumed by the operator UI.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/analytics"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/config"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/store"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

// Simulation is the command side of the running simulator.
type Simulation interface {
	Acknowledge(ctx context.Context, id string) (entities.Alert, error)
	TriggerEmergency(ctx context.Context, cmd messages.EmergencyCommand) messages.Notification
	Broadcast(ctx context.Context, cmd messages.BroadcastCommand) (messages.Notification, error)
	LastTick() time.Time
	Running() bool
}

// SinkHealth reports delivery backend state. The dispatcher satisfies it.
type SinkHealth interface {
	Healthy() bool
	States() map[string]string
}

// Deps are the collaborators the API reads from and writes to.
type Deps struct {
	Store      *store.Store
	Simulation Simulation
	Sinks      SinkHealth   // optional
	Events     http.Handler // optional, Influx-backed alert history
	Rand       rng.Source
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg        config.Config
	store      *store.Store
	sim        Simulation
	sinks      SinkHealth
	events     http.Handler
	rand       rng.Source
	confidence *analytics.ConfidenceMemo
	engine     *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(recoveryMiddleware())
	engine.Use(requestLogger())
	engine.Use(metricsMiddleware())
	engine.Use(corsMiddleware())

	src := deps.Rand
	if src == nil {
		src = rng.New(0)
	}
	s := &Server{
		cfg:        cfg,
		store:      deps.Store,
		sim:        deps.Simulation,
		sinks:      deps.Sinks,
		events:     deps.Events,
		rand:       src,
		confidence: analytics.NewConfidenceMemo(src),
		engine:     engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/readyz", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/dashboard", s.handleDashboard)

		v1.GET("/sensors", s.handleListSensors)
		v1.GET("/sensors/:id", s.handleGetSensor)

		v1.GET("/alerts", s.handleListAlerts)
		v1.POST("/alerts/:id/ack", s.handleAcknowledge)
		v1.POST("/emergency", s.handleEmergency)
		v1.POST("/broadcast", s.handleBroadcast)

		v1.GET("/water-quality", s.handleWaterQuality)
		v1.GET("/analytics", s.handleAnalytics)
		v1.GET("/communities", s.handleCommunities)
		v1.GET("/reports", s.handleReports)
	}

	if s.events != nil {
		s.engine.GET("/events/alerts/latest", gin.WrapH(s.events))
	}
}

// staleAfter is how many missed ticks make the service unready.
const staleAfter = 3

func (s *Server) handleReady(c *gin.Context) {
	last := s.sim.LastTick()
	fresh := !last.IsZero() && time.Since(last) <= staleAfter*s.cfg.Simulation.Interval
	sinksOK := s.sinks == nil || s.sinks.Healthy()

	body := gin.H{"ready": fresh && sinksOK, "simulator_running": s.sim.Running()}
	if !last.IsZero() {
		body["last_tick"] = last
	}
	if s.sinks != nil {
		body["sinks"] = s.sinks.States()
	}
	status := http.StatusOK
	if !(fresh && sinksOK) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}
