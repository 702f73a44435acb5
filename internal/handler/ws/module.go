package ws

import (
	"log/slog"
	"net/http"

	httpsrv "github.com/webitel/admin-notify-service/infra/server/http"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/service"
	"go.uber.org/fx"
)

const StreamPath = "/api/admin/notifications/ws"

var Module = fx.Module("delivery-ws",
	fx.Provide(NewWSHandler),
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(server *httpsrv.Server, h *WSHandler, auther service.Auther, logger *slog.Logger) {
	server.Router.With(authn.RequireAdmin(auther, logger)).Method(http.MethodGet, StreamPath, h)
}
