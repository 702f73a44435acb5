package model

// Close codes carried by DisconnectedPayload.Code.
const (
	CodeShutdown = "SHUTDOWN"
	CodeEvicted  = "EVICTED"
	CodeClosed   = "CLOSED"
)

// DisconnectedPayload represents the notification sent before the server closes the stream.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}
