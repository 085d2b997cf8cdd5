// Package queue defines message payloads exchanged over the message broker.
package queue

// AlertDispatchedEvent is published after every alert fan-out. It carries
// enough information for downstream consumers to log or audit the
// dispatch without querying the primary database. Per-contact phone
// numbers are deliberately omitted from the payload.
type AlertDispatchedEvent struct {
	AlertID      string `json:"alert_id"`
	UserID       uint64 `json:"user_id"`
	Kind         string `json:"kind"` // sos | tracking | destination
	Contacts     int    `json:"contacts"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	DispatchedAt string `json:"dispatched_at"`
}
