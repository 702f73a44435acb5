package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/adapter/auth"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	"github.com/webitel/admin-notify-service/internal/service"
)

func newServer(t *testing.T) (*registry.Hub, string) {
	t.Helper()

	auther, err := auth.NewStaticAuther([]config.StaticIdentity{
		{Token: "admin-token", UserID: uuid.NewString(), Roles: []string{model.RoleAdmin}},
	})
	require.NoError(t, err)

	hub := registry.NewHub()
	cfg := &config.Config{Notify: config.NotifyConfig{KeepaliveInterval: 10 * time.Second}}
	h := NewWSHandler(slog.Default(), service.NewDeliveryService(hub), cfg)

	r := chi.NewRouter()
	r.With(authn.RequireAdmin(auther, slog.Default())).Method(http.MethodGet, StreamPath, h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + StreamPath
}

func readFrame(t *testing.T, c *websocket.Conn) *marshaller.Frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	frame, err := marshaller.Decode(data)
	require.NoError(t, err)
	return frame
}

func TestWS_UnauthorizedBeforeUpgrade(t *testing.T) {
	_, url := newServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_DeliversFramesAndGoodbye(t *testing.T) {
	hub, url := newServer(t)

	c, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer admin-token"}})
	require.NoError(t, err)
	defer c.Close()

	hello := readFrame(t, c)
	require.Equal(t, marshaller.FrameConnected, hello.Type)
	p, err := hello.Connected()
	require.NoError(t, err)
	assert.EqualValues(t, 10000, p.KeepaliveMs)

	n := event.NewNotification(event.System, json.RawMessage(`{"text":"hello"}`))
	hub.Broadcast(n)
	frame := readFrame(t, c)
	assert.Equal(t, n.ID, frame.ID)
	assert.Equal(t, "SYSTEM", frame.Kind)

	hub.Shutdown()
	bye := readFrame(t, c)
	require.Equal(t, marshaller.FrameDisconnected, bye.Type)
	d, err := bye.Disconnected()
	require.NoError(t, err)
	assert.Equal(t, model.CodeShutdown, d.Code)

	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWS_ClientCloseReleasesChannel(t *testing.T) {
	hub, url := newServer(t)

	c, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer admin-token"}})
	require.NoError(t, err)
	readFrame(t, c)
	require.Equal(t, 1, hub.Stats().TotalConnections)

	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Close()

	assert.Eventually(t, func() bool {
		return hub.Stats().TotalConnections == 0
	}, 2*time.Second, 20*time.Millisecond)
}
