package amqp

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/admin-notify-service/infra/pubsub"
	pubsubadapter "github.com/webitel/admin-notify-service/internal/adapter/pubsub"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		pubsubadapter.NewEventDispatcher,

		NewMessageHandler,
		NewWatermillRouter,
	),

	fx.Invoke(func(lc fx.Lifecycle, h *MessageHandler, router *message.Router, factory pubsub.Factory) error {
		if err := h.RegisterHandlers(router, factory); err != nil {
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := router.Run(context.Background()); err != nil {
						h.logger.Error("AMQP_ROUTER_STOPPED", "err", err)
					}
				}()
				select {
				case <-router.Running():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
			OnStop: func(context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)
