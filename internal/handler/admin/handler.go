package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/service"
)

const maxBody = 64 << 10

// SystemRequest is the body of POST /system. Payload is forwarded verbatim.
type SystemRequest struct {
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type SystemResponse struct {
	ID        string `json:"id"`
	Delivered int    `json:"delivered"`
}

type AdminHandler struct {
	logger  *slog.Logger
	emitter service.Emitter
	hub     registry.Hubber
}

func NewAdminHandler(logger *slog.Logger, emitter service.Emitter, hub registry.Hubber) *AdminHandler {
	return &AdminHandler{logger: logger, emitter: emitter, hub: hub}
}

// EmitSystem announces a SYSTEM notification to every open channel.
func (h *AdminHandler) EmitSystem(w http.ResponseWriter, r *http.Request) {
	var req SystemRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	n := event.NewNotification(event.System, req.Payload)
	if req.ID != "" {
		n.ID = req.ID
	}

	delivered, err := h.emitter.Emit(r.Context(), n)
	if err != nil {
		if errors.Is(err, model.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "emit failed")
		return
	}

	if identity, ok := authn.IdentityFrom(r.Context()); ok {
		h.logger.Info("SYSTEM_NOTICE_ANNOUNCED",
			"id", n.ID,
			"by", identity.UserID.String(),
			"delivered", delivered,
		)
	}
	writeJSON(w, http.StatusAccepted, SystemResponse{ID: n.ID, Delivered: delivered})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Stats())
}

func (h *AdminHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
