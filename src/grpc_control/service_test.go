package grpc_control

import (
	"context"
	"testing"
	"time"

	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
)

func check(t *testing.T, s *ControlService, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestSessionHealthFollowsSession(t *testing.T) {
	s := NewControlService(&models.MConfig{}, logger.NewNopLogger("test"))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, SessionService))

	s.SessionChanged(models.MSession{Authenticated: true})
	resp, err := s.Health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: SessionService})
	require.NoError(t, err)
	assert.True(t, proto.Equal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, resp))

	s.SessionChanged(models.MSession{})
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s, SessionService))
}

func TestStartDisabledWaitsForContext(t *testing.T) {
	s := NewControlService(&models.MConfig{GrpcPort: 0}, logger.NewNopLogger("test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}
}
