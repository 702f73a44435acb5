package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		NewWatermillLogger,
		NewFactory,
		func(f Factory) (message.Publisher, error) { return f.Publisher() },
	),
	fx.Invoke(func(lc fx.Lifecycle, f Factory) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return f.Close()
			},
		})
	}),
)
