package event

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var _ Eventer = (*Notification)(nil)

// Notification is the NotificationEvent produced by the reservation write path.
//
// [IMMUTABLE] Fields are read-only after construction; the same pointer is shared
// by every channel the event fans out to.
type Notification struct {
	ID         string
	Kind       Kind
	Payload    json.RawMessage
	OccurredAt time.Time

	// [ENCODE_CACHE] wire bytes computed once per event, shared across channels
	cached atomic.Pointer[[]byte]
}

// NewNotification assigns a fresh time-ordered id.
func NewNotification(kind Kind, payload json.RawMessage) *Notification {
	return &Notification{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Kind:       kind,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks the fields the fan-out path relies on.
func (n *Notification) Validate() error {
	switch {
	case n == nil:
		return errors.New("notification is nil")
	case n.ID == "":
		return errors.New("notification id is empty")
	case !n.Kind.IsNotification():
		return errors.New("notification kind " + n.Kind.String() + " is not a notification kind")
	case len(n.Payload) > 0 && !json.Valid(n.Payload):
		return errors.New("notification payload is not valid json")
	}
	return nil
}

func (n *Notification) GetID() string            { return n.ID }
func (n *Notification) GetKind() Kind            { return n.Kind }
func (n *Notification) GetOccurredAt() time.Time { return n.OccurredAt }
func (n *Notification) GetPayload() any          { return n.Payload }

func (n *Notification) GetCached() []byte {
	if p := n.cached.Load(); p != nil {
		return *p
	}
	return nil
}

func (n *Notification) SetCached(b []byte) { n.cached.Store(&b) }
