package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/admin-notify-service/internal/client/stream"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	"github.com/webitel/admin-notify-service/internal/handler/ws"
)

var _ stream.Dialer = (*WSDialer)(nil)

type WSDialer struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
}

func NewWSDialer(base *url.URL, token string) *WSDialer {
	u := base.JoinPath(ws.StreamPath)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return &WSDialer{
		endpoint: u.String(),
		token:    token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *WSDialer) Dial(ctx context.Context) (stream.Stream, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", bearer(d.token))
	}

	conn, resp, err := d.dialer.DialContext(ctx, d.endpoint, header)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			_ = resp.Body.Close()
			return nil, classifyStatus(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", model.ErrTransportFailure, err)
	}
	conn.SetReadLimit(maxFrameSize)
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Next() (*marshaller.Frame, error) {
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		return marshaller.Decode(data)
	}
}

func (s *wsStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
