package track

import "time"

// HistoryEntry is one persisted fix as returned by the history endpoint.
//
// The durable store behind it is an external collaborator reached through
// a narrow save/read interface; this type is the read-side row shape.
type HistoryEntry struct {
	// ID uniquely identifies the persisted row.
	ID string `json:"id"`

	// Position is the recorded coordinate pair.
	Position Position `json:"position"`

	// Speed is the recorded speed in km/h.
	Speed float64 `json:"speed"`

	// Timestamp is when the fix was accepted.
	Timestamp time.Time `json:"timestamp"`

	// UserID attributes the fix to the reporting caller, when known.
	UserID string `json:"userId,omitempty"`
}
