package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/infra/pubsub"
	grpcsrv "github.com/webitel/admin-notify-service/infra/server/grpc"
	httpsrv "github.com/webitel/admin-notify-service/infra/server/http"
	"github.com/webitel/admin-notify-service/infra/telemetry"
	"github.com/webitel/admin-notify-service/internal/adapter/auth"
	"github.com/webitel/admin-notify-service/internal/adapter/metrics"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	amqpdi "github.com/webitel/admin-notify-service/internal/handler/amqp"
	"github.com/webitel/admin-notify-service/internal/handler/admin"
	"github.com/webitel/admin-notify-service/internal/handler/sse"
	"github.com/webitel/admin-notify-service/internal/handler/ws"
	"github.com/webitel/admin-notify-service/internal/service"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLoggerProvider,
			ProvideLogger,
			ProvideTracerProvider,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: l.With(slog.String("component", "fx"))}
		}),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		fx.Invoke(WatchConfig),

		pubsub.Module,
		metrics.Module,
		auth.Module,
		service.Module,
		registry.Module,
		httpsrv.Module,
		grpcsrv.Module,
		sse.Module,
		ws.Module,
		admin.Module,
		amqpdi.Module,

		// [GRACEFUL_SHUTDOWN] goodbye frames go out before the HTTP drain waits on open streams
		fx.Invoke(func(s *httpsrv.Server, hub registry.Hubber) {
			s.OnShutdown(hub.Shutdown)
		}),
	)
}

// ProvideLoggerProvider backs the slog bridge; nil unless log.otel is set.
func ProvideLoggerProvider(cfg *config.Config) (*sdklog.LoggerProvider, error) {
	if !cfg.Log.OTel {
		return nil, nil
	}
	return telemetry.NewLoggerProvider(telemetry.LogExportConfig{
		ServiceName: ServiceName,
		Namespace:   ServiceNamespace,
		Version:     cfg.Service.Version,
	})
}

func ProvideLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	var bridge log.LoggerProvider
	if lp != nil {
		bridge = lp
	}
	logger := telemetry.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format, bridge, ServiceName).
		With(slog.String("service", ServiceName), slog.String("version", cfg.Service.Version))
	slog.SetDefault(logger)
	return logger
}

func ProvideTracerProvider(lc fx.Lifecycle, cfg *config.Config, lp *sdklog.LoggerProvider) (*sdktrace.TracerProvider, error) {
	tp, err := telemetry.NewTracerProvider(telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: ServiceName,
		Namespace:   ServiceNamespace,
		Version:     cfg.Service.Version,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		// [FLUSH] spans first, then the records logged while they ended
		OnStop: func(ctx context.Context) error {
			return errors.Join(telemetry.Shutdown(ctx, tp), telemetry.ShutdownLogs(ctx, lp))
		},
	})
	return tp, nil
}

// WatchConfig warns when the config file changes; nothing is reloaded.
func WatchConfig(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return config.Watch(ctx, cfg.File, logger) },
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
