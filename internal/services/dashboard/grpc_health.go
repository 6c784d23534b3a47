package dashboard

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
)

// Service names reported by the health server besides the overall "".
const (
	SimulatorService = "simulator"
	DispatchService  = "dispatch"
)

// HealthServer exposes grpc.health.v1 for orchestrators that probe over gRPC.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
}

func NewHealthServer() *HealthServer {
	hs := health.NewServer()
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	h := &HealthServer{grpcServer: s, health: hs}
	h.Update(false, false)
	return h
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Update publishes the current state. The overall status follows the simulator.
func (h *HealthServer) Update(simulatorOK, sinksOK bool) {
	h.health.SetServingStatus("", servingStatus(simulatorOK))
	h.health.SetServingStatus(SimulatorService, servingStatus(simulatorOK))
	h.health.SetServingStatus(DispatchService, servingStatus(sinksOK))
}

// Monitor polls the simulation and sinks every interval until ctx is done.
func (h *HealthServer) Monitor(ctx context.Context, sim Simulation, sinks SinkHealth, every time.Duration) {
	check := func() {
		simOK := sim.Running() && !sim.LastTick().IsZero() && time.Since(sim.LastTick()) <= staleAfter*every
		h.Update(simOK, sinks == nil || sinks.Healthy())
	}
	check()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Serve blocks on lis until ctx is cancelled, then drains and stops.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
		if err := h.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		h.health.Shutdown()
		h.grpcServer.GracefulStop()
		return nil
	}
}

// Run listens on addr and serves until ctx is cancelled.
func (h *HealthServer) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, lis)
}
