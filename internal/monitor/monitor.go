package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ghanabus/bustracker/track"
)

// Store is the slice of the state store the sweeper needs.
type Store interface {
	// MarkDisconnected flips Connected to false when the last fix is
	// older than cutoff, returning the resulting snapshot and whether a
	// transition happened.
	MarkDisconnected(cutoff time.Time) (track.VehicleState, bool)
}

// Broadcaster delivers a message to all connected subscribers.
type Broadcaster interface {
	Broadcast(msg track.Message)
}

// Sweeper runs the periodic staleness check.
//
// Each sweep asks the store to flip the vehicle to disconnected when
// `now - timestamp > window`; on a transition it broadcasts one
// CONNECTION_STATUS message. Sweeps tolerate a cold store (no fix yet) and
// an empty subscriber registry; both are no-ops.
//
// Start and Stop follow the usual lifecycle discipline: Start is
// idempotent, Stop cancels the loop and waits for it to exit, and calling
// Stop before Start is a safe no-op.
type Sweeper struct {
	store     Store
	bc        Broadcaster
	window    time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	onStale   func()

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSweeper creates a Sweeper that checks every interval whether the last
// fix is older than window. onStale, if non-nil, observes each
// connected-to-stale transition (used for the staleness counter).
func NewSweeper(store Store, bc Broadcaster, window, interval time.Duration, logger *slog.Logger, onStale func()) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		bc:       bc,
		window:   window,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		onStale:  onStale,
	}
}

// Start begins sweeping in a background goroutine until the context is
// cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit. Idempotent.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// sweep runs one staleness check.
func (s *Sweeper) sweep() {
	now := s.now()
	state, flipped := s.store.MarkDisconnected(now.Add(-s.window))
	if !flipped {
		return
	}

	s.logger.Info("vehicle marked disconnected after silence",
		"window", s.window.String(),
		"last_fix", state.Timestamp.UTC().Format(time.RFC3339),
	)
	if s.onStale != nil {
		s.onStale()
	}
	s.bc.Broadcast(track.NewConnectionStatus(false))
}
