package history

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ghanabus/bustracker/track"
)

const defaultMemoryCapacity = 1000

// MemoryRecorder keeps the most recent fixes in a bounded in-memory ring.
//
// It is the default recorder when no database is configured, giving the
// /history endpoint something to serve in development. Chat history is
// accepted and dropped; the memory recorder has no consumer for it.
type MemoryRecorder struct {
	mu    sync.Mutex
	fixes []track.HistoryEntry
	cap   int
}

// NewMemoryRecorder creates a ring holding up to capacity fixes.
// A capacity of 0 or less falls back to the default of 1000.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRecorder{cap: capacity}
}

// Name identifies the backend for the health endpoint.
func (m *MemoryRecorder) Name() string { return "memory" }

// SaveFix appends the fix, evicting the oldest entry when the ring is full.
func (m *MemoryRecorder) SaveFix(_ context.Context, state track.VehicleState, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fixes = append(m.fixes, track.HistoryEntry{
		ID:        uuid.NewString(),
		Position:  state.Position,
		Speed:     state.Speed,
		Timestamp: state.Timestamp,
		UserID:    userID,
	})
	if len(m.fixes) > m.cap {
		m.fixes = m.fixes[len(m.fixes)-m.cap:]
	}
	return nil
}

// SaveChat is a no-op for the in-memory backend.
func (m *MemoryRecorder) SaveChat(_ context.Context, _, _, _ string) error {
	return nil
}

// History returns up to limit fixes, most recent first.
func (m *MemoryRecorder) History(_ context.Context, limit int) ([]track.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.fixes) {
		limit = len(m.fixes)
	}
	out := make([]track.HistoryEntry, 0, limit)
	for i := len(m.fixes) - 1; i >= len(m.fixes)-limit; i-- {
		out = append(out, m.fixes[i])
	}
	return out, nil
}
