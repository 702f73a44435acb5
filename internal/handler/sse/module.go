package sse

import (
	"log/slog"
	"net/http"

	httpsrv "github.com/webitel/admin-notify-service/infra/server/http"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/service"
	"go.uber.org/fx"
)

const StreamPath = "/api/admin/notifications/stream"

var Module = fx.Module("delivery-sse",
	fx.Provide(NewSSEHandler),
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(server *httpsrv.Server, h *SSEHandler, auther service.Auther, logger *slog.Logger) {
	server.Router.With(authn.RequireAdmin(auther, logger)).Method(http.MethodGet, StreamPath, h)
}
