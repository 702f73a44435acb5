package registry

import (
	"context"
	"log/slog"

	"github.com/webitel/admin-notify-service/config"
	"go.uber.org/fx"
)

type hubParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Observer Observer `optional:"true"`
}

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(p hubParams) *Hub {
			return NewHub(
				WithKeepaliveInterval(p.Config.Notify.KeepaliveInterval),
				WithBufferSize(p.Config.Notify.BufferSize),
				WithDedupSize(p.Config.Notify.DedupSize),
				WithObserver(p.Observer),
				WithLogger(p.Logger),
			)
		},
		fx.Annotate(
			func(h *Hub) Hubber { return h },
			fx.As(new(Hubber)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		runCtx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// [HEARTBEAT] keepalive ticker lives as long as the app
				go func() { _ = h.Run(runCtx) }()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				h.Shutdown() // [GRACEFUL_SHUTDOWN] goodbye frame to every channel
				return nil
			},
		})
	}),
)
