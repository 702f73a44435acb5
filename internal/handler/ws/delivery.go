package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	"github.com/webitel/admin-notify-service/internal/service"
)

const (
	writeTimeout = 10 * time.Second
	maxInbound   = 4 << 10
)

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
	version   string
	keepalive time.Duration
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, cfg *config.Config) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// [CSRF] browsers must be same-origin
			CheckOrigin: sameOrigin,
		},
		version:   cfg.Service.Version,
		keepalive: cfg.Notify.KeepaliveInterval,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. IDENTITY (set by authn.RequireAdmin before the upgrade)
	identity, _ := authn.IdentityFrom(r.Context())

	// 2. SUBSCRIBE BEFORE UPGRADE so refusals are plain HTTP errors
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := h.deliverer.Subscribe(ctx, identity, authn.Metadata(r, "ws"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnauthorized):
			http.Error(w, err.Error(), http.StatusUnauthorized)
		case errors.Is(err, model.ErrHubClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, "failed to open channel", http.StatusInternalServerError)
		}
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetUserID(), conn.GetID())

	// 3. UPGRADE TO WEBSOCKET
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("[WS] upgrade failed", slog.Any("err", err))
		return
	}
	defer socket.Close()

	log := h.logger.With(
		slog.String("user_id", conn.GetUserID().String()),
		slog.String("conn_id", conn.GetID().String()),
	)

	// [READ_PUMP] the client sends nothing meaningful; reading surfaces close frames and dead peers
	go func() {
		defer cancel()
		socket.SetReadLimit(maxInbound)
		for {
			if _, _, err := socket.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(ev event.Eventer) error {
		data, err := marshaller.MarshallDeliveryEvent(ev)
		if err != nil {
			return err
		}
		_ = socket.SetWriteDeadline(time.Now().Add(writeTimeout))
		return socket.WriteMessage(websocket.TextMessage, data)
	}

	// 4. HANDSHAKE
	if err := send(marshaller.HandshakeSignal(conn, h.version, h.keepalive)); err != nil {
		log.Warn("[WS] handshake failed", slog.Any("err", err))
		return
	}
	log.Info("[WS] channel opened")

	// 5. MAIN WS PUMP LOOP
	for {
		select {
		case <-conn.Done():
			if bye, ok := marshaller.GoodbyeSignal(conn); ok {
				_ = send(bye)
				_ = socket.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, bye.GetPayload().(model.DisconnectedPayload).Code),
					time.Now().Add(time.Second))
				log.Info("[WS] channel closed by server", slog.Any("reason", bye.GetPayload()))
			}
			return
		case ev := <-conn.Recv():
			if err := send(ev); err != nil {
				log.Warn("[WS] send failed", slog.Any("err", err))
				return
			}
		}
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
