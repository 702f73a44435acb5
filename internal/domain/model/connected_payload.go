package model

// ConnectedPayload is the handshake sent on every freshly opened channel.
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	ConnectionID  string `json:"connection_id"`
	ServerVersion string `json:"server_version"`
	KeepaliveMs   int64  `json:"keepalive_ms"`
}
