package ws

import "time"

// ConnInfo carries per-connection identity and telemetry metadata captured at
// handshake time.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
