package state

import (
	"sync"
	"time"

	"github.com/ghanabus/bustracker/track"
)

// Store holds the current [track.VehicleState] and guards it for concurrent
// access from the HTTP handlers, the liveness monitor, and any fix feed.
//
// Get returns a value snapshot, so callers can never observe a partial
// write. Replace swaps the whole record atomically. The store performs no
// validation; that is the ingest pipeline's job. State is not persisted:
// it is a live-tracking cache, not a system of record, and is rebuilt from
// zero values on restart.
type Store struct {
	mu      sync.RWMutex
	current track.VehicleState
}

// NewStore creates a Store primed with the zero state: sentinel (0, 0)
// position, zero speed, no timestamp, disconnected.
func NewStore() *Store {
	return &Store{}
}

// Get returns a snapshot of the current state.
func (s *Store) Get() track.VehicleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new state wholesale.
func (s *Store) Replace(next track.VehicleState) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

// MarkDisconnected flips Connected to false when the last fix is older than
// cutoff, leaving every other field untouched. It returns the resulting
// snapshot and whether a transition happened.
//
// No transition occurs when the vehicle is already disconnected, when no
// fix has ever arrived (a cold store must not raise a staleness alarm), or
// when a fix newer than cutoff landed between the monitor's decision and
// this call. The check and the flip share one critical section so a
// concurrent Replace cannot be clobbered.
func (s *Store) MarkDisconnected(cutoff time.Time) (track.VehicleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Connected || s.current.Timestamp.IsZero() || !s.current.Timestamp.Before(cutoff) {
		return s.current, false
	}
	s.current.Connected = false
	return s.current, true
}
