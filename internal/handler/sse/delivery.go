package sse

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	ssemarshaller "github.com/webitel/admin-notify-service/internal/handler/marshaller/sse"
	"github.com/webitel/admin-notify-service/internal/service"
)

const writeTimeout = 10 * time.Second

type SSEHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	version   string
	keepalive time.Duration
}

func NewSSEHandler(logger *slog.Logger, deliverer service.Deliverer, cfg *config.Config) *SSEHandler {
	return &SSEHandler{
		logger:    logger,
		deliverer: deliverer,
		version:   cfg.Service.Version,
		keepalive: cfg.Notify.KeepaliveInterval,
	}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. IDENTITY (set by authn.RequireAdmin)
	identity, _ := authn.IdentityFrom(r.Context())

	// 2. SUBSCRIBE; the channel lives as long as the request
	conn, err := h.deliverer.Subscribe(r.Context(), identity, authn.Metadata(r, "sse"))
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

	log := h.logger.With(
		slog.String("user_id", conn.GetUserID().String()),
		slog.String("conn_id", conn.GetID().String()),
	)

	w.Header().Set("Content-Type", ssemarshaller.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	send := func(ev event.Eventer) error {
		_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ssemarshaller.WriteEvent(w, ev); err != nil {
			return err
		}
		return rc.Flush()
	}

	// 3. HANDSHAKE
	if err := send(marshaller.HandshakeSignal(conn, h.version, h.keepalive)); err != nil {
		log.Warn("[SSE] handshake failed", slog.Any("err", err))
		return
	}
	log.Info("[SSE] channel opened")

	// 4. MAIN PUMP LOOP
	for {
		select {
		case <-conn.Done():
			if bye, ok := marshaller.GoodbyeSignal(conn); ok {
				// [BEST_EFFORT] the peer may already be gone
				_ = send(bye)
				log.Info("[SSE] channel closed by server", slog.Any("reason", bye.GetPayload()))
			}
			return
		case ev := <-conn.Recv():
			if err := send(ev); err != nil {
				log.Warn("[SSE] send failed", slog.Any("err", err))
				return
			}
		}
	}
}
