package grpcsrv

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/webitel/admin-notify-service/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-check service key reported next to the overall "" status.
const ServiceName = "admin-notify"

// Server exposes grpc.health.v1 for orchestrators and mesh probes.
type Server struct {
	*grpc.Server
	Health *health.Server

	addr     string
	logger   *slog.Logger
	listener net.Listener
}

// InterceptorLogger adapts slog to the go-grpc-middleware logging contract.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	recoveryOpt := recovery.WithRecoveryHandler(func(p any) error {
		logger.Error("[GRPC] PANIC_RECOVERED", "err", p, "stack", string(debug.Stack()))
		return status.Error(codes.Internal, "internal error")
	})
	logOpts := []logging.Option{logging.WithLogOnEvents(logging.FinishCall)}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(InterceptorLogger(logger), logOpts...),
			recovery.UnaryServerInterceptor(recoveryOpt),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(InterceptorLogger(logger), logOpts...),
			recovery.StreamServerInterceptor(recoveryOpt),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		Server: s,
		Health: hs,
		addr:   cfg.Service.GRPCAddress,
		logger: logger,
	}
}

// Enabled reports whether a listen address is configured.
func (s *Server) Enabled() bool { return s.addr != "" }

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Error("[GRPC] server stopped", slog.Any("err", err))
		}
	}()
	s.Health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("[GRPC] health endpoint listening", slog.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop flips every status to NOT_SERVING, then drains.
func (s *Server) Stop(ctx context.Context) error {
	s.Health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.Server.Stop()
		return ctx.Err()
	}
}

var Module = fx.Module("grpc-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		if !s.Enabled() {
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop:  s.Stop,
		})
	}),
)
