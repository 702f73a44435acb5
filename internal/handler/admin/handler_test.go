package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/service"
)

func TestEmitSystem(t *testing.T) {
	hub := registry.NewHub()
	conn := registry.NewConnector(context.Background(), uuid.New(), model.ConnectMetadata{}, hub.ConnectorConfig())
	require.NoError(t, hub.Register(conn))

	h := NewAdminHandler(slog.Default(), service.NewNotificationEmitter(hub), hub)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/notifications/system",
		strings.NewReader(`{"payload":{"text":"Branch closes early today"}}`))
	req = req.WithContext(authn.WithIdentity(req.Context(), &model.Identity{UserID: uuid.New(), Roles: []string{model.RoleAdmin}}))
	rec := httptest.NewRecorder()
	h.EmitSystem(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp SystemResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Delivered)

	ev := <-conn.Recv()
	assert.Equal(t, resp.ID, ev.GetID())
	assert.Equal(t, event.System, ev.GetKind())
}

func TestEmitSystem_BadRequests(t *testing.T) {
	hub := registry.NewHub()
	h := NewAdminHandler(slog.Default(), service.NewNotificationEmitter(hub), hub)

	for _, body := range []string{`{`, `{"payload":`} {
		rec := httptest.NewRecorder()
		h.EmitSystem(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestStatsAndHealth(t *testing.T) {
	hub := registry.NewHub()
	userID := uuid.New()
	for range 2 {
		require.NoError(t, hub.Register(registry.NewConnector(context.Background(), userID, model.ConnectMetadata{}, hub.ConnectorConfig())))
	}
	h := NewAdminHandler(slog.Default(), service.NewNotificationEmitter(hub), hub)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.HubStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalAdmins)
	assert.Equal(t, 2, stats.TotalConnections)
	require.Len(t, stats.Admins, 1)
	assert.Equal(t, userID.String(), stats.Admins[0].UserID)

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats_UptimeInMilliseconds(t *testing.T) {
	hub := registry.NewHub()
	h := NewAdminHandler(slog.Default(), service.NewNotificationEmitter(hub), hub)
	time.Sleep(20 * time.Millisecond)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.NotContains(t, raw, "uptime")
	require.Contains(t, raw, "uptime_ms")
	uptime, ok := raw["uptime_ms"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, uptime, float64(20))
	assert.Less(t, uptime, float64(time.Minute/time.Millisecond))
}
