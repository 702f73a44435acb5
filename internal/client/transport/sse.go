package transport

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"

	"github.com/webitel/admin-notify-service/internal/client/stream"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	ssemarshaller "github.com/webitel/admin-notify-service/internal/handler/marshaller/sse"
	"github.com/webitel/admin-notify-service/internal/handler/sse"
)

var _ stream.Dialer = (*SSEDialer)(nil)

type SSEDialer struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewSSEDialer targets the SSE endpoint under base. A nil client gets one
// without an overall timeout, since the response body is open-ended.
func NewSSEDialer(base *url.URL, token string, client *http.Client) *SSEDialer {
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = handshakeTimeout
		client = &http.Client{Transport: tr}
	}
	return &SSEDialer{
		endpoint: base.JoinPath(sse.StreamPath).String(),
		token:    token,
		client:   client,
	}
}

func (d *SSEDialer) Dial(ctx context.Context) (stream.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", ssemarshaller.ContentType)
	req.Header.Set("Cache-Control", "no-cache")
	if d.token != "" {
		req.Header.Set("Authorization", bearer(d.token))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", model.ErrTransportFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		cancel()
		return nil, classifyStatus(resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != ssemarshaller.ContentType {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: unexpected content type %q", model.ErrTransportFailure, mt)
	}

	return &sseStream{
		body:   resp.Body,
		reader: ssemarshaller.NewReader(resp.Body),
		cancel: cancel,
	}, nil
}

type sseStream struct {
	body   io.ReadCloser
	reader *ssemarshaller.Reader
	cancel context.CancelFunc
	once   sync.Once
}

func (s *sseStream) Next() (*marshaller.Frame, error) {
	for {
		msg, err := s.reader.Next()
		if err != nil {
			return nil, err
		}
		if msg.Event == "message" && len(msg.Data) == 0 {
			continue
		}
		return marshaller.Decode(msg.Data)
	}
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
