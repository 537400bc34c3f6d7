package bustracker

import (
	"context"

	"github.com/ghanabus/bustracker/track"
)

// Recorder is the persistence backend for fixes and chat exchanges.
//
// All writes on the live path are best effort: a failing Recorder is logged
// and never blocks ingest or chat responses. The built-in backends are the
// in-memory ring (default) and Postgres, wired by the serve command when a
// database URL is configured; any implementation satisfying this interface
// can be supplied with [WithRecorder].
type Recorder interface {
	// SaveFix records one accepted fix attributed to userID.
	SaveFix(ctx context.Context, state track.VehicleState, userID string) error

	// SaveChat records one answered chat exchange.
	SaveChat(ctx context.Context, userID, query, reply string) error

	// History returns up to limit fixes, most recent first.
	History(ctx context.Context, limit int) ([]track.HistoryEntry, error)

	// Name identifies the backend in the health payload.
	Name() string
}
