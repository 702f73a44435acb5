package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/admin-notify-service/config"
	"go.uber.org/fx"
)

// Server owns the public HTTP listener. Handler modules mount routes on Router.
type Server struct {
	Router chi.Router

	srv      *http.Server
	logger   *slog.Logger
	listener net.Listener
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
	)

	return &Server{
		Router: r,
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.Service.Address,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// no WriteTimeout: channels are long-lived; handlers set per-write deadlines
			IdleTimeout: 120 * time.Second,
		},
	}
}

// Start binds the port synchronously so a busy address fails the app start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("[HTTP] server stopped", slog.Any("err", err))
		}
	}()
	s.logger.Info("[HTTP] listening", slog.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// OnShutdown runs f as soon as Stop begins, while active streams still hold their
// connections. Streaming handlers use it to say goodbye before the drain deadline.
func (s *Server) OnShutdown(f func()) {
	s.srv.RegisterOnShutdown(f)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// RequestLogger logs one line per request; streaming requests log when they end.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST_HANDLED",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

var Module = fx.Module("http-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop:  func(ctx context.Context) error { return s.Stop(ctx) },
		})
	}),
)
