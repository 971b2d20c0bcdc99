package model

import "time"

// RangeView is the JSON projection of a single reserved address range.
type RangeView struct {
	ID     int    `json:"id"`
	State  string `json:"state"`
	Start  string `json:"start"`
	Count  uint32 `json:"count"`
	Sender string `json:"sender"`
}

// NotificationView is the JSON projection of an engine Notify event.
type NotificationView struct {
	Kind   string `json:"kind"`
	ID     int    `json:"id"`
	Start  string `json:"start,omitempty"`
	Count  uint32 `json:"count,omitempty"`
	State  string `json:"state,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// EngineSnapshot is the top-level payload served by GET /api/status. It
// both reports the live ranges and drains the server's log of
// notifications recorded since the last call, so a polling client sees
// each logged event once. The log holds only the most recent 64
// notifications; older ones are dropped before any client sees them.
type EngineSnapshot struct {
	SrcMAC        string             `json:"src_mac"`
	PoolBase      string             `json:"pool_base"`
	PoolLen       uint32             `json:"pool_len"`
	Ranges        []RangeView        `json:"ranges"`
	Notifications []NotificationView `json:"notifications"`
	FetchedAt     time.Time          `json:"fetched_at"`
}

// ReserveRequest is the JSON body of POST /api/ranges.
type ReserveRequest struct {
	Length uint32 `json:"length"`
}

// ReserveResponse is the JSON reply of POST /api/ranges.
type ReserveResponse struct {
	ID int `json:"id"`
}
