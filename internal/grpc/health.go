package grpc

import (
	"net"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service name
const ServiceName = "restock.StockService"

// HealthServer exposes grpc.health.v1 for orchestrators
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

// NewHealthServer builds a server that reports NOT_SERVING until SetServing
// is called
func NewHealthServer(log zerolog.Logger) *HealthServer {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	h := &HealthServer{server: srv, health: hs, log: log}
	h.SetServing(false)
	return h
}

// SetServing flips the reported status of the whole server
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	h.log.Info().Str("status", status.String()).Msg("grpc health status changed")
}

// Serve blocks until the listener fails or the server is stopped
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health server listening")
	return h.server.Serve(lis)
}

// GracefulStop reports NOT_SERVING and drains in-flight RPCs
func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
