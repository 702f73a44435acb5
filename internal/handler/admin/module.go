package admin

import (
	"log/slog"

	httpsrv "github.com/webitel/admin-notify-service/infra/server/http"
	"github.com/webitel/admin-notify-service/internal/adapter/metrics"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("admin-http",
	fx.Provide(NewAdminHandler),
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(server *httpsrv.Server, h *AdminHandler, obs *metrics.Observer, auther service.Auther, logger *slog.Logger) {
	server.Router.Get("/healthz", h.Health)
	server.Router.Method("GET", "/metrics", obs.Handler())

	admin := server.Router.With(authn.RequireAdmin(auther, logger))
	admin.Post("/api/admin/notifications/system", h.EmitSystem)
	admin.Get("/api/admin/notifications/stats", h.Stats)
}
