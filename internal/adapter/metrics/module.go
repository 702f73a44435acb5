package metrics

import (
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(
		NewObserver,
		func(o *Observer) registry.Observer { return o },
	),
)
