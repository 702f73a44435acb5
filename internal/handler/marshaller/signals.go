package marshaller

import (
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
)

// HandshakeSignal is the first frame of every channel.
func HandshakeSignal(conn registry.Connector, serverVersion string, keepalive time.Duration) event.Eventer {
	return event.NewSignal(event.Connected, model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  conn.GetID().String(),
		ServerVersion: serverVersion,
		KeepaliveMs:   keepalive.Milliseconds(),
	})
}

// GoodbyeSignal returns the final frame for a server-initiated close, or
// false when the channel ended from the client side.
func GoodbyeSignal(conn registry.Connector) (event.Eventer, bool) {
	reason, closed := conn.CloseReason()
	if !closed || reason.Code == model.CodeClosed {
		return nil, false
	}
	return event.NewSignal(event.Disconnected, reason), true
}
