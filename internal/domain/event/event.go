package event

import (
	"fmt"
	"strings"
	"time"
)

// Kind tells business notifications and control signals apart on the wire.
type Kind int16

const (
	// [BUSINESS]
	ReservationCreated Kind = iota + 1
	ReservationUpdated
	System

	// [CONTROL] never stored, never sounded
	Keepalive
	Connected
	Disconnected
)

var kindNames = map[Kind]string{
	ReservationCreated: "RESERVATION_CREATED",
	ReservationUpdated: "RESERVATION_UPDATED",
	System:             "SYSTEM",
	Keepalive:          "KEEPALIVE",
	Connected:          "CONNECTED",
	Disconnected:       "DISCONNECTED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int16(k))
}

// IsNotification reports whether the kind is a NotificationEvent kind.
func (k Kind) IsNotification() bool {
	return k == ReservationCreated || k == ReservationUpdated || k == System
}

// ParseKind accepts the wire names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == upper {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown event kind %d", int16(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() Kind
	GetOccurredAt() time.Time
	GetPayload() any
	GetCached() []byte
	SetCached([]byte)
}
