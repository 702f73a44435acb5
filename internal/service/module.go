package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewDeliveryService,
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewNotificationEmitter,
			fx.As(new(Emitter)),
		),
	),

	// [DECORATION_LAYER] Intercept Emitter to add cross-cutting concerns
	fx.Decorate(func(orig Emitter, logger *slog.Logger) Emitter {
		return NewEmitterMiddleware(orig, logger)
	}),
)
