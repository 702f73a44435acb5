package marshaller

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// FrameType is the wire name of a frame, also used as the SSE event name.
type FrameType string

const (
	FrameNotification FrameType = "notification"
	FrameKeepalive    FrameType = "keepalive"
	FrameConnected    FrameType = "connected"
	FrameDisconnected FrameType = "disconnected"
)

// Frame is the JSON document carried by every SSE message and WebSocket text frame.
type Frame struct {
	Type       FrameType       `json:"type"`
	ID         string          `json:"id,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TypeOf maps a domain kind to its frame type.
func TypeOf(kind event.Kind) (FrameType, error) {
	switch {
	case kind.IsNotification():
		return FrameNotification, nil
	case kind == event.Keepalive:
		return FrameKeepalive, nil
	case kind == event.Connected:
		return FrameConnected, nil
	case kind == event.Disconnected:
		return FrameDisconnected, nil
	}
	return "", fmt.Errorf("no frame type for kind %s", kind)
}

// MarshallDeliveryEvent encodes ev as a Frame. The bytes are cached on the
// event so a fan-out to many channels encodes once.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	if cached := ev.GetCached(); cached != nil {
		return cached, nil
	}

	typ, err := TypeOf(ev.GetKind())
	if err != nil {
		return nil, err
	}

	frame := Frame{
		Type:       typ,
		ID:         ev.GetID(),
		OccurredAt: ev.GetOccurredAt(),
	}
	if typ == FrameNotification {
		frame.Kind = ev.GetKind().String()
	}

	switch p := ev.GetPayload().(type) {
	case nil:
	case json.RawMessage:
		frame.Payload = p
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		frame.Payload = raw
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}

	// STORE: reused for every other channel of this broadcast
	ev.SetCached(data)
	return data, nil
}

// Decode parses one frame. Unknown types and notification frames without an
// id are reported as transport failures.
func Decode(data []byte) (*Frame, error) {
	f := new(Frame)
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %w", model.ErrTransportFailure, err)
	}

	switch f.Type {
	case FrameKeepalive, FrameConnected, FrameDisconnected:
	case FrameNotification:
		if f.ID == "" {
			return nil, fmt.Errorf("%w: notification frame without id", model.ErrTransportFailure)
		}
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", model.ErrTransportFailure, f.Type)
	}
	return f, nil
}

// Notification rebuilds the NotificationEvent of a notification frame.
func (f *Frame) Notification() (*event.Notification, error) {
	if f.Type != FrameNotification {
		return nil, errors.New("not a notification frame")
	}
	kind, err := event.ParseKind(f.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTransportFailure, err)
	}
	return &event.Notification{
		ID:         f.ID,
		Kind:       kind,
		Payload:    f.Payload,
		OccurredAt: f.OccurredAt,
	}, nil
}

func (f *Frame) Connected() (model.ConnectedPayload, error) {
	var p model.ConnectedPayload
	if f.Type != FrameConnected {
		return p, errors.New("not a connected frame")
	}
	err := decodePayload(f.Payload, &p)
	return p, err
}

func (f *Frame) Disconnected() (model.DisconnectedPayload, error) {
	var p model.DisconnectedPayload
	if f.Type != FrameDisconnected {
		return p, errors.New("not a disconnected frame")
	}
	err := decodePayload(f.Payload, &p)
	return p, err
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: payload: %w", model.ErrTransportFailure, err)
	}
	return nil
}
