package grpc_control

import (
	"context"
	"fmt"
	"net"

	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// SessionService is the health service name that follows the broker session.
const SessionService = "kiwoom.dashboard.Session"

// ControlService exposes process and session health over gRPC.
type ControlService struct {
	Config *models.MConfig
	Logger *logger.Logger
	Health *health.Server
	server *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *models.MConfig, log *logger.Logger) *ControlService {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &ControlService{
		Config: cfg,
		Logger: log,
		Health: hs,
		server: srv,
	}
}

// -----------------------------------------------------------------------------

// SessionChanged is registered as a session listener.
func (s *ControlService) SessionChanged(sess models.MSession) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if sess.Authenticated {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(SessionService, st)
}

// -----------------------------------------------------------------------------

// Start serves until ctx is cancelled. A zero grpc_port disables it.
func (s *ControlService) Start(ctx context.Context) error {
	if s.Config.GrpcPort == 0 {
		<-ctx.Done()
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		s.Health.Shutdown()
		s.server.GracefulStop()
	}()

	s.Logger.Info("gRPC control listening on %s", addr)
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
