package event

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*Signal)(nil)

// Signal is a generic envelope for control frames (keepalive, handshake, goodbye).
type Signal struct {
	id         string
	kind       Kind
	occurredAt time.Time
	payload    any
	cached     atomic.Pointer[[]byte]
}

// [INTERFACE_IMPLEMENTATION]
func (s *Signal) GetID() string            { return s.id }
func (s *Signal) GetKind() Kind            { return s.kind }
func (s *Signal) GetOccurredAt() time.Time { return s.occurredAt }
func (s *Signal) GetPayload() any          { return s.payload }

func (s *Signal) GetCached() []byte {
	if p := s.cached.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Signal) SetCached(b []byte) { s.cached.Store(&b) }

// NewSignal is a universal factory for creating any control frame.
func NewSignal(kind Kind, payload any) *Signal {
	return &Signal{
		id:         uuid.NewString(),
		kind:       kind,
		occurredAt: time.Now().UTC(),
		payload:    payload,
	}
}

// NewKeepalive carries no payload.
func NewKeepalive() *Signal {
	return NewSignal(Keepalive, nil)
}
