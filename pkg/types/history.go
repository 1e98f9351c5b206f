package types

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one element of an offer's append-only status audit trail.
// Entries are never rewritten; transitions only append.
type HistoryEntry struct {
	Status    string       `json:"status"`
	ActorID   uuid.UUID    `json:"actor_id"`
	ActorRole string       `json:"actor_role"`
	Timestamp time.Time    `json:"timestamp"`
	Notes     *string      `json:"notes,omitempty"`
	Location  *Coordinates `json:"location,omitempty"`
}

// StatusHistory is the embedded audit log stored on the offer row.
type StatusHistory []HistoryEntry

// Last returns the most recent entry, or nil for an empty history.
func (h StatusHistory) Last() *HistoryEntry {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}
