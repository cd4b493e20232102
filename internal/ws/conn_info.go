package ws

import "time"

// ConnInfo carries identity and handshake metadata for one connection,
// used for audit events and disconnect reporting.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
