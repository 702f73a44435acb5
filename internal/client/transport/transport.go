// Package transport opens administrator Channels for the stream client.
package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/webitel/admin-notify-service/internal/client/stream"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

const (
	SSE       = "sse"
	WebSocket = "ws"

	handshakeTimeout = 15 * time.Second
	// maxFrameSize bounds one inbound frame on either transport.
	maxFrameSize = 1 << 20
)

type Config struct {
	ServerURL string
	Token     string
	Transport string
}

// New builds the Dialer for cfg.Transport.
func New(cfg Config) (stream.Dialer, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", cfg.ServerURL)
	}

	switch cfg.Transport {
	case SSE, "":
		return NewSSEDialer(base, cfg.Token, nil), nil
	case WebSocket:
		return NewWSDialer(base, cfg.Token), nil
	}
	return nil, fmt.Errorf("transport %q is not supported", cfg.Transport)
}

// classifyStatus maps a refused channel-open response to the client error taxonomy.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("open channel: %w", model.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: open channel: unexpected status %d", model.ErrTransportFailure, code)
	}
}

func bearer(token string) string {
	return "Bearer " + token
}
