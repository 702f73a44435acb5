package model

import (
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
)

// ClientNotificationRecord is the client-held view of a received notification.
type ClientNotificationRecord struct {
	Event        *event.Notification
	ReceivedAt   time.Time
	Acknowledged bool // shown/sounded; flips false->true once per id
	Read         bool // viewed by the administrator; drives the unread badge
}
