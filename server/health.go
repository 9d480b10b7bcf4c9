package server

import (
	"context"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

// HealthServer serves the gRPC health checking protocol for the relay directions.
// Each direction is a service named after it. The empty service is SERVING while all known directions are.
//
// It implements core.EventSink: a direction is SERVING after its loop started or a submission succeeded,
// and NOT_SERVING after its loop stopped or a submission has been abandoned.
type HealthServer struct {
	health *health.Server

	mu      sync.Mutex
	serving map[string]bool
}

var _ core.EventSink = (*HealthServer)(nil)

func NewHealthServer() *HealthServer {
	hs := &HealthServer{
		health:  health.NewServer(),
		serving: make(map[string]bool),
	}
	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

func (hs *HealthServer) HandleEvent(_ context.Context, ev core.Event) {
	switch ev.Type {
	case core.EventLoopStarted, core.EventSubmissionSucceeded:
		hs.setServing(ev.Direction, true)
	case core.EventLoopStopped, core.EventSubmissionAbandoned:
		hs.setServing(ev.Direction, false)
	}
}

func (hs *HealthServer) setServing(direction string, serving bool) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if prev, ok := hs.serving[direction]; ok && prev == serving {
		return
	}
	hs.serving[direction] = serving
	hs.health.SetServingStatus(direction, toStatus(serving))

	all := true
	for _, s := range hs.serving {
		all = all && s
	}
	hs.health.SetServingStatus("", toStatus(all))
}

func toStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Check returns the current status of a direction, or of the whole relayer for the empty service
func (hs *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	res, err := hs.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return res.Status, nil
}

// Serve serves the health service on lis until ctx is done
func (hs *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs.health)

	logger := log.GetLogger().WithModule("server")
	logger.Info("health server started", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()
	select {
	case <-ctx.Done():
		hs.health.Shutdown()
		s.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// ListenAndServe listens on the TCP address and calls Serve
func (hs *HealthServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return hs.Serve(ctx, lis)
}
