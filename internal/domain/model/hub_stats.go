package model

type HubStats struct {
	TotalAdmins      int          `json:"total_admins"`
	TotalConnections int          `json:"total_connections"`
	Emitted          uint64       `json:"emitted"`
	Evicted          uint64       `json:"evicted"`
	UptimeMs         int64        `json:"uptime_ms"`
	Admins           []AdminStats `json:"admins,omitempty"`
}

type AdminStats struct {
	UserID      string `json:"user_id"`
	Connections int    `json:"connections"`
}
