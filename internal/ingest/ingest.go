package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ghanabus/bustracker/track"
)

const persistTimeout = 5 * time.Second

// Store holds the live vehicle state.
type Store interface {
	Replace(next track.VehicleState)
}

// Broadcaster fans a message out to every connected subscriber.
type Broadcaster interface {
	Broadcast(msg track.Message)
}

// FixRecorder persists accepted fixes. Writes are best effort: the pipeline
// logs failures and carries on.
type FixRecorder interface {
	SaveFix(ctx context.Context, state track.VehicleState, userID string) error
}

// Observer receives pipeline counters. All methods must be safe to call
// concurrently.
type Observer interface {
	FixAccepted()
	FixRejected()
	PersistFailed()
}

// Pipeline validates fixes and applies them to the shared state.
type Pipeline struct {
	store     Store
	bc        Broadcaster
	recorder  FixRecorder
	logger    *slog.Logger
	obs       Observer
	callbacks []func(track.VehicleState)

	now func() time.Time
}

// NewPipeline wires the ingest path. recorder and obs may be nil.
func NewPipeline(store Store, bc Broadcaster, recorder FixRecorder, logger *slog.Logger, obs Observer) *Pipeline {
	return &Pipeline{
		store:    store,
		bc:       bc,
		recorder: recorder,
		logger:   logger,
		obs:      obs,
		now:      time.Now,
	}
}

// OnUpdate registers a callback invoked after each accepted fix with the
// state that was applied. Callbacks run synchronously on the ingest path
// and are recovered if they panic. Not safe to call after ingestion starts.
func (p *Pipeline) OnUpdate(fn func(track.VehicleState)) {
	p.callbacks = append(p.callbacks, fn)
}

// Apply validates the fix, replaces the live state, persists it in the
// background and broadcasts the update. The returned state is the one
// written to the store. A validation failure leaves state untouched and
// returns [track.ErrInvalidFix].
func (p *Pipeline) Apply(fix track.Fix, userID string) (track.VehicleState, error) {
	if err := fix.Validate(); err != nil {
		if p.obs != nil {
			p.obs.FixRejected()
		}
		return track.VehicleState{}, err
	}

	state := track.VehicleState{
		Position:  track.NewPosition(fix.Lat, fix.Lng),
		Speed:     fix.Speed,
		Timestamp: p.now().UTC(),
		Connected: true,
	}
	p.store.Replace(state)
	if p.obs != nil {
		p.obs.FixAccepted()
	}

	if p.recorder != nil {
		go p.persist(state, userID)
	}

	p.bc.Broadcast(track.NewPositionUpdate(state))

	for _, fn := range p.callbacks {
		p.invoke(fn, state)
	}

	return state, nil
}

// persist writes the fix with its own deadline, detached from the request
// that produced it. Failures are logged with a correlation ID and dropped.
func (p *Pipeline) persist(state track.VehicleState, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := p.recorder.SaveFix(ctx, state, userID); err != nil {
		if p.obs != nil {
			p.obs.PersistFailed()
		}
		p.logger.Warn("fix persistence failed",
			"error", err,
			"correlation_id", uuid.NewString(),
			"lat", state.Position.Lat(),
			"lng", state.Position.Lng(),
		)
	}
}

func (p *Pipeline) invoke(fn func(track.VehicleState), state track.VehicleState) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("update callback panicked",
				"panic", r,
				"correlation_id", uuid.NewString(),
			)
		}
	}()
	fn(state)
}
